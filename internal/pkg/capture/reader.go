// Package capture reads offline packet captures and hands packet bytes to
// the matcher. Both classic pcap and pcapng files are accepted.
package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/endorses/stringmatch/internal/pkg/logger"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// pcapng files start with a section header block, whose type reads the
// same in either byte order.
var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// ErrStopped is returned by a PacketFunc to end a read early without an error.
var ErrStopped = errors.New("capture read stopped")

// Packet is one decoded packet from a capture file.
type Packet struct {
	// Index counts packets from zero in file order.
	Index       int
	CaptureInfo gopacket.CaptureInfo
	LinkType    layers.LinkType

	// Data is the whole frame as captured.
	Data []byte

	// Payload is the bytes handed to the matcher: the application payload,
	// or the whole frame when reading with WholeFrame.
	Payload []byte
}

// Options controls what part of a packet is matched.
type Options struct {
	// WholeFrame matches the frame including link, network and transport
	// headers instead of the application payload.
	WholeFrame bool

	// SkipEmpty drops packets without payload before they reach the callback.
	SkipEmpty bool
}

// Stats summarizes a read.
type Stats struct {
	Packets int
	Bytes   int64
	Skipped int
}

// Reader yields packets from a pcap or pcapng file.
type Reader struct {
	path     string
	file     *os.File
	source   *gopacket.PacketSource
	linkType layers.LinkType
	opts     Options
	index    int
}

// Open opens a capture file, detecting its format from the first block.
func Open(path string, opts Options) (*Reader, error) {
	// #nosec G304 -- Path is from the command line
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	r, err := newReader(file, opts)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.path = path
	r.file = file

	logger.Debug("Opened capture file", "file", path, "link_type", r.linkType)
	return r, nil
}

// NewReader reads a capture from an arbitrary stream.
func NewReader(rd io.Reader, opts Options) (*Reader, error) {
	return newReader(rd, opts)
}

func newReader(rd io.Reader, opts Options) (*Reader, error) {
	br := bufio.NewReader(rd)
	magic, err := br.Peek(len(ngMagic))
	if err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}

	var (
		data     gopacket.PacketDataSource
		linkType layers.LinkType
	)
	if string(magic) == string(ngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to read pcapng header: %w", err)
		}
		data, linkType = ng, ng.LinkType()
	} else {
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to read pcap header: %w", err)
		}
		data, linkType = pr, pr.LinkType()
	}

	source := gopacket.NewPacketSource(data, linkType)
	source.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

	return &Reader{source: source, linkType: linkType, opts: opts}, nil
}

// LinkType returns the link type of the capture.
func (r *Reader) LinkType() layers.LinkType {
	return r.linkType
}

// Next returns the next packet, or io.EOF at the end of the capture.
func (r *Reader) Next() (Packet, error) {
	pkt, err := r.source.NextPacket()
	if err != nil {
		return Packet{}, err
	}

	p := Packet{
		Index:       r.index,
		CaptureInfo: pkt.Metadata().CaptureInfo,
		LinkType:    r.linkType,
		Data:        pkt.Data(),
	}
	r.index++

	if r.opts.WholeFrame {
		p.Payload = p.Data
	} else {
		p.Payload = Payload(pkt)
	}
	return p, nil
}

// Close closes the underlying file, if the reader opened one.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// Payload returns the application bytes of a decoded packet. Packets that
// gopacket cannot classify fall back to the transport payload, then to the
// network payload.
func Payload(pkt gopacket.Packet) []byte {
	if app := pkt.ApplicationLayer(); app != nil {
		return app.Payload()
	}
	if tl := pkt.TransportLayer(); tl != nil {
		return tl.LayerPayload()
	}
	if nl := pkt.NetworkLayer(); nl != nil {
		return nl.LayerPayload()
	}
	return nil
}

// PacketFunc receives each packet of a read. Returning ErrStopped ends the
// read cleanly; any other error aborts it.
type PacketFunc func(Packet) error

// Each reads packets until the end of the capture, the context is done or
// fn stops the read.
func (r *Reader) Each(ctx context.Context, fn PacketFunc) (Stats, error) {
	var stats Stats
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		p, err := r.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			// Truncated captures are common; keep what was read.
			if errors.Is(err, io.ErrUnexpectedEOF) {
				logger.Warn("Capture file truncated", "file", r.path, "packets", stats.Packets)
				return stats, nil
			}
			return stats, fmt.Errorf("failed to read packet %d: %w", r.index, err)
		}

		if r.opts.SkipEmpty && len(p.Payload) == 0 {
			stats.Skipped++
			continue
		}

		stats.Packets++
		stats.Bytes += int64(len(p.Payload))

		if err := fn(p); err != nil {
			if errors.Is(err, ErrStopped) {
				return stats, nil
			}
			return stats, err
		}
	}
}

// ReadFile opens path and calls fn for every packet in it.
func ReadFile(ctx context.Context, path string, opts Options, fn PacketFunc) (Stats, error) {
	r, err := Open(path, opts)
	if err != nil {
		return Stats{}, err
	}
	defer r.Close()

	stats, err := r.Each(ctx, fn)
	logger.Debug("Read capture file",
		"file", path,
		"packets", stats.Packets,
		"bytes", stats.Bytes,
		"skipped", stats.Skipped)
	return stats, err
}
