// Package pcapwriter copies matched packets into a pcap file.
package pcapwriter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/endorses/stringmatch/internal/pkg/capture"
	"github.com/endorses/stringmatch/internal/pkg/constants"
	"github.com/endorses/stringmatch/internal/pkg/logger"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// ErrClosed is returned when writing to a closed writer.
var ErrClosed = errors.New("pcap writer is closed")

// Writer writes packets to a PCAP file from a background goroutine
type Writer struct {
	filePath     string
	snaplen      uint32
	file         *os.File
	writer       *pcapgo.Writer
	packetChan   chan capture.Packet
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.Mutex
	closed       atomic.Bool
	syncTicker   *time.Ticker
	headerDone   bool
	packetCount  atomic.Int64
	bytesWritten atomic.Int64
}

// Config for PCAP writer
type Config struct {
	FilePath     string        // Path to PCAP file
	BufferSize   int           // Channel buffer size
	SyncInterval time.Duration // How often to sync to disk
	Snaplen      uint32        // Snapshot length recorded in the file header
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		BufferSize:   constants.PayloadChannelBuffer,
		SyncInterval: 5 * time.Second,
		Snaplen:      65536,
	}
}

// New creates a new PCAP writer
func New(config *Config) (*Writer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.FilePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	defaults := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.SyncInterval <= 0 {
		config.SyncInterval = defaults.SyncInterval
	}
	if config.Snaplen == 0 {
		config.Snaplen = defaults.Snaplen
	}

	// #nosec G304 -- Path is from the command line
	file, err := os.Create(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create PCAP file: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &Writer{
		filePath:   config.FilePath,
		snaplen:    config.Snaplen,
		file:       file,
		writer:     pcapgo.NewWriter(file),
		packetChan: make(chan capture.Packet, config.BufferSize),
		ctx:        ctx,
		cancel:     cancel,
		syncTicker: time.NewTicker(config.SyncInterval),
	}

	w.wg.Add(1)
	go w.writeLoop()

	logger.Info("Created PCAP writer", "file", config.FilePath, "buffer_size", config.BufferSize)

	return w, nil
}

// WritePacket queues a packet for writing, blocking while the buffer is full.
func (w *Writer) WritePacket(pkt capture.Packet) error {
	if w.closed.Load() {
		return ErrClosed
	}

	// The frame may alias the reader's buffer.
	pkt.Data = append([]byte(nil), pkt.Data...)
	pkt.Payload = nil

	select {
	case w.packetChan <- pkt:
		return nil
	case <-w.ctx.Done():
		return ErrClosed
	}
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()

	for {
		select {
		case pkt, ok := <-w.packetChan:
			if !ok {
				return
			}
			if err := w.writePacketToFile(pkt); err != nil {
				logger.Error("Failed to write packet", "error", err, "file", w.filePath)
			}

		case <-w.syncTicker.C:
			w.mu.Lock()
			if w.file != nil {
				_ = w.file.Sync()
			}
			w.mu.Unlock()

		case <-w.ctx.Done():
			w.drainPackets()
			return
		}
	}
}

// writeHeader writes the file header once, taking the link type of the
// first packet.
func (w *Writer) writeHeader(linkType layers.LinkType) error {
	if w.headerDone {
		return nil
	}
	if err := w.writer.WriteFileHeader(w.snaplen, linkType); err != nil {
		return fmt.Errorf("failed to write PCAP header: %w", err)
	}
	w.headerDone = true
	logger.Debug("Wrote PCAP header", "file", w.filePath, "link_type", linkType)
	return nil
}

func (w *Writer) writePacketToFile(pkt capture.Packet) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writeHeader(pkt.LinkType); err != nil {
		return err
	}

	ci := pkt.CaptureInfo
	ci.CaptureLength = len(pkt.Data)
	if ci.Length < ci.CaptureLength {
		ci.Length = ci.CaptureLength
	}
	if err := w.writer.WritePacket(ci, pkt.Data); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}

	w.packetCount.Add(1)
	w.bytesWritten.Add(int64(len(pkt.Data)))
	return nil
}

func (w *Writer) drainPackets() {
	for {
		select {
		case pkt, ok := <-w.packetChan:
			if !ok {
				return
			}
			if err := w.writePacketToFile(pkt); err != nil {
				logger.Warn("Failed to write packet during drain", "error", err)
			}
		default:
			return
		}
	}
}

// Close flushes all queued packets and closes the file. A writer that never
// saw a packet still leaves a valid, empty Ethernet capture behind. Close
// must not run concurrently with WritePacket.
func (w *Writer) Close() error {
	if w.closed.Swap(true) {
		return nil
	}

	close(w.packetChan)
	w.wg.Wait()
	w.cancel()
	w.syncTicker.Stop()

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writeHeader(layers.LinkTypeEthernet); err != nil {
		logger.Warn("Failed to write PCAP header on close", "error", err, "file", w.filePath)
	}

	if w.file != nil {
		if err := w.file.Sync(); err != nil {
			logger.Warn("Failed to sync PCAP file", "error", err, "file", w.filePath)
		}
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("failed to close PCAP file: %w", err)
		}
		w.file = nil
	}

	logger.Info("Closed PCAP writer",
		"file", w.filePath,
		"packets", w.packetCount.Load(),
		"bytes", w.bytesWritten.Load())

	return nil
}

// Stats returns current writer statistics
func (w *Writer) Stats() (packetCount, bytesWritten int64) {
	return w.packetCount.Load(), w.bytesWritten.Load()
}

// FilePath returns the file path being written to
func (w *Writer) FilePath() string {
	return w.filePath
}
