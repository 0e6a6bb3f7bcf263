// Package pipeline feeds captured packets through a classifier. A reader
// goroutine decodes the capture and a pool of workers matches payloads,
// counting results and copying matched packets to an optional writer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/endorses/stringmatch/internal/pkg/capture"
	"github.com/endorses/stringmatch/internal/pkg/classifier"
	"github.com/endorses/stringmatch/internal/pkg/constants"
	"github.com/endorses/stringmatch/internal/pkg/logger"
	"github.com/endorses/stringmatch/internal/pkg/matcher"
	"github.com/endorses/stringmatch/internal/pkg/metrics"
)

// PacketWriter receives matched packets. *pcapwriter.Writer implements it.
type PacketWriter interface {
	WritePacket(pkt capture.Packet) error
}

// Config configures a pipeline.
type Config struct {
	Capture capture.Options

	// Workers is the number of matching goroutines. Default: 1
	Workers int

	// Passes reads the capture this many times; a negative value repeats
	// until the context is done. Default: 1
	Passes int

	// BufferSize is the channel capacity between reader and workers.
	BufferSize int
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Workers:    1,
		Passes:     1,
		BufferSize: constants.PayloadChannelBuffer,
	}
}

// Summary describes a finished run.
type Summary struct {
	Passes   int
	Packets  int
	Bytes    int64
	Skipped  int
	Counts   classifier.Counts
	Outputs  map[int]uint64
	Written  int
	Duration time.Duration
}

// Pipeline connects a capture to a classifier.
type Pipeline struct {
	config     Config
	classifier *classifier.Classifier
	source     *matcher.Buffered
	metrics    *metrics.Collector
	writer     PacketWriter
}

// New creates a pipeline classifying against source. collector and writer
// may be nil.
func New(config Config, source *matcher.Buffered, mode classifier.Mode, collector *metrics.Collector, writer PacketWriter) *Pipeline {
	defaults := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.Passes == 0 {
		config.Passes = defaults.Passes
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}

	return &Pipeline{
		config:     config,
		classifier: classifier.New(source, mode),
		source:     source,
		metrics:    collector,
		writer:     writer,
	}
}

// Classifier returns the classifier fed by the pipeline.
func (p *Pipeline) Classifier() *classifier.Classifier {
	return p.classifier
}

// Run reads path Passes times and classifies every packet. Counters are
// reset at the start of a run.
func (p *Pipeline) Run(ctx context.Context, path string) (Summary, error) {
	start := time.Now()
	p.classifier.ResetCounts()

	packets := make(chan capture.Packet, p.config.BufferSize)
	errChan := make(chan error, constants.ErrorChannelBuffer)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		written int
	)
	for i := 0; i < p.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pkt := range packets {
				if !p.process(pkt) {
					continue
				}
				if err := p.writer.WritePacket(pkt); err != nil {
					select {
					case errChan <- fmt.Errorf("failed to write matched packet %d: %w", pkt.Index, err):
					default:
					}
					cancel()
					continue
				}
				mu.Lock()
				written++
				mu.Unlock()
			}
		}()
	}

	var (
		summary Summary
		readErr error
	)
	for pass := 0; p.config.Passes < 0 || pass < p.config.Passes; pass++ {
		stats, err := capture.ReadFile(ctx, path, p.config.Capture, func(pkt capture.Packet) error {
			select {
			case packets <- pkt:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		summary.Packets += stats.Packets
		summary.Bytes += stats.Bytes
		summary.Skipped += stats.Skipped
		if err != nil {
			readErr = err
			break
		}
		summary.Passes++
		if stats.Packets == 0 && stats.Skipped == 0 {
			// An empty capture would spin forever when repeating.
			break
		}
	}

	close(packets)
	wg.Wait()

	var err error
	select {
	case err = <-errChan:
	default:
		if readErr != nil && !errors.Is(readErr, context.Canceled) && !errors.Is(readErr, context.DeadlineExceeded) {
			err = readErr
		}
	}

	summary.Counts = p.classifier.Counts()
	summary.Outputs = p.classifier.Outputs()
	summary.Written = written
	summary.Duration = time.Since(start)

	logger.Info("Scan finished",
		"file", path,
		"passes", summary.Passes,
		"packets", summary.Counts.Count,
		"bytes", summary.Counts.ByteCount,
		"matches", summary.Counts.Matches,
		"heavy", summary.Counts.Heavy,
		"written", summary.Written,
		"duration", summary.Duration)

	return summary, err
}

// process classifies one packet and reports whether it should be written.
func (p *Pipeline) process(pkt capture.Packet) bool {
	res := p.classifier.Push(pkt.Payload)

	if p.metrics != nil {
		kind := matcher.KindAhoCorasick
		if m := p.source.Current(); m != nil {
			kind = m.Kind()
		}
		p.metrics.ObservePacket(kind, len(pkt.Payload), res.Matched)
		p.metrics.ObserveScan(res.Stats, res.Heavy)
	}

	return res.Matched && p.writer != nil
}
