// Package telemetry wraps a zap logger plus a small set of atomic
// counters: an explicit observability sink in place of the original
// engine's global mutable stats object.
package telemetry

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Telemetry is threaded by reference into build, merge and query
// contexts. The zero value is not usable; construct with New.
type Telemetry struct {
	Log *zap.Logger

	bytesRead    atomic.Int64
	bytesWritten atomic.Int64
	queriesRun   atomic.Int64
	segmentLoads atomic.Int64
}

// New builds a production zap logger (JSON, info level) and a fresh
// counter set.
func New() (*Telemetry, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &Telemetry{Log: logger}, nil
}

// NewNop returns a Telemetry whose logger discards everything, for
// tests and tools that don't care about log output.
func NewNop() *Telemetry {
	return &Telemetry{Log: zap.NewNop()}
}

// AddBytesRead and AddBytesWritten track disk traffic across the
// segment caches and the writer's block flushes.
func (t *Telemetry) AddBytesRead(n int64)    { t.bytesRead.Add(n) }
func (t *Telemetry) AddBytesWritten(n int64) { t.bytesWritten.Add(n) }

// BytesRead and BytesWritten report running totals.
func (t *Telemetry) BytesRead() int64    { return t.bytesRead.Load() }
func (t *Telemetry) BytesWritten() int64 { return t.bytesWritten.Load() }

// IncQueriesRun and QueriesRun track query volume.
func (t *Telemetry) IncQueriesRun()     { t.queriesRun.Add(1) }
func (t *Telemetry) QueriesRun() int64  { return t.queriesRun.Load() }

// IncSegmentLoads and SegmentLoads track L2->L1 decode events, useful
// for judging whether the cache sizes in common.DecompressedSegments /
// common.MaxSegmentsInMemory are well tuned.
func (t *Telemetry) IncSegmentLoads()    { t.segmentLoads.Add(1) }
func (t *Telemetry) SegmentLoads() int64 { return t.segmentLoads.Load() }

// Sync flushes the underlying logger; callers should defer this at
// process exit.
func (t *Telemetry) Sync() error {
	return t.Log.Sync()
}
