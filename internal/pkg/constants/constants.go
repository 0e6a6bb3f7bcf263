// Package constants provides shared constants used across stringmatch components.
package constants

import "time"

// Shutdown and reload timing
const (
	// GracefulShutdownTimeout is the time to wait for the metrics server to stop
	GracefulShutdownTimeout = 2 * time.Second

	// ReloadDebounce is how long a pattern file must be quiet before it is reloaded
	ReloadDebounce = 200 * time.Millisecond

	// MetricsReadHeaderTimeout bounds how long the metrics server waits for request headers
	MetricsReadHeaderTimeout = 5 * time.Second
)

// Channel buffer sizes
//
// Signals and errors use single-item buffers so the sender never blocks.
// Payload channels are large enough to absorb bursts from a capture file.
const (
	// SignalChannelBuffer is the buffer size for OS signal channels
	SignalChannelBuffer = 1

	// ErrorChannelBuffer is the buffer size for error reporting channels
	ErrorChannelBuffer = 1

	// PayloadChannelBuffer is the buffer size between the capture reader and the scan workers
	PayloadChannelBuffer = 1000
)

// Config and file locations
const (
	// ConfigDirName is the directory under $HOME/.config holding config.yaml
	ConfigDirName = "stringmatch"

	// EnvPrefix prefixes environment overrides, e.g. STRINGMATCH_MATCHER_BACKEND
	EnvPrefix = "STRINGMATCH"
)
