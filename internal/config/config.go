// Package config holds the engine's process-wide settings as one
// immutable struct populated once at startup and threaded by reference
// into every subsystem, instead of the package-level mutable globals
// the original engine used for its configurator.
package config

import "time"

// Config is built once by cmd/indexctl and passed down; nothing in the
// index/query path mutates it after construction.
type Config struct {
	// IndexPath is the compact index file a build/merge/query operates
	// against.
	IndexPath string

	// UseDirectIO is forwarded to compactindex.Writer.
	UseDirectIO bool

	// AllInMemory is forwarded to compactindex.Reader.
	AllInMemory bool

	// BM25K1 and BM25B are the default ranking parameters;
	// a per-query modifier can still override them.
	BM25K1 float64
	BM25B  float64

	// MaxQuerySpace is the per-query memory budget in bytes. The TAAT
	// strategy turns it into its accumulator limit (one accumulator per
	// 16 bytes), past which accumulator pruning starts; the other
	// strategies do not consult it.
	MaxQuerySpace int64

	// IdleTimeout is the shell-layer TCP idle timeout; unused
	// outside the (out-of-scope) daemon shell but kept here so a future
	// shell can read it from the same struct.
	IdleTimeout time.Duration
}

// Default returns the engine's baseline configuration.
func Default() Config {
	return Config{
		BM25K1:        1.2,
		BM25B:         0.75,
		MaxQuerySpace: 256 << 20,
		IdleTimeout:   5 * time.Minute,
	}
}
