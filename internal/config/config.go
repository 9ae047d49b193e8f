// Package config reads the module's environment-variable knobs. It
// mirrors the teacher's internal/cli.LoadConfig pattern: a single Load
// call, every variable optional, sane defaults when unset.
package config

import (
	"os"
	"strconv"
)

// Transport selects which internal/transport.Job implementation to use.
type Transport string

const (
	TransportQUIC Transport = "quic"
	TransportTCP  Transport = "tcp"
)

// Config holds every environment-derived, process-wide knob.
type Config struct {
	// StackDepth caps the number of frames kept in a captured call-path.
	// -1 means unlimited; this is spec.md §6's MPILEAKS_STACK_DEPTH,
	// default 1.
	StackDepth int

	// ControlFile, if set, is watched by internal/control's fsnotify
	// channel: a write to this path is translated into the same
	// enable/disable/dump levels the intercepted control hook accepts.
	ControlFile string

	// Transport names the peer transport; defaults to quic. No code in
	// this module reads it: cmd/mpileaks-sim always uses an in-process
	// transport.MemFabric.
	Transport Transport
}

// Load reads the process environment and returns a Config with defaults
// applied for anything unset or malformed.
func Load() Config {
	cfg := Config{
		StackDepth: 1,
		Transport:  TransportQUIC,
	}

	if v, ok := os.LookupEnv("MPILEAKS_STACK_DEPTH"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StackDepth = n
		}
	}

	if v, ok := os.LookupEnv("MPILEAKS_CONTROL_FILE"); ok {
		cfg.ControlFile = v
	}

	if v, ok := os.LookupEnv("MPILEAKS_TRANSPORT"); ok {
		switch Transport(v) {
		case TransportTCP:
			cfg.Transport = TransportTCP
		case TransportQUIC:
			cfg.Transport = TransportQUIC
		}
	}

	return cfg
}
