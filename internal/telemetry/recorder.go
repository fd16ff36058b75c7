package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/bft-labs/signtype/pkg/log"
)

// Recorder tracks per-connection statistics and feeds the Prometheus
// collectors.
type Recorder struct {
	metrics *Metrics
	logger  log.Logger
	now     func() time.Time

	totalStreams  atomic.Uint64
	activeStreams atomic.Int64
	totalFrames   atomic.Uint64
	totalDropped  atomic.Uint64
	totalCommits  atomic.Uint64
}

// Snapshot captures cumulative totals recorded so far.
type Snapshot struct {
	TotalStreams  uint64
	ActiveStreams int64
	TotalFrames   uint64
	TotalDropped  uint64
	TotalCommits  uint64
}

// NewRecorder creates a Recorder. metrics may be nil.
func NewRecorder(metrics *Metrics, logger log.Logger) *Recorder {
	return &Recorder{
		metrics: metrics,
		logger:  log.With(logger, log.String("component", "telemetry")),
		now:     time.Now,
	}
}

// Snapshot returns the recorder totals.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		TotalStreams:  r.totalStreams.Load(),
		ActiveStreams: r.activeStreams.Load(),
		TotalFrames:   r.totalFrames.Load(),
		TotalDropped:  r.totalDropped.Load(),
		TotalCommits:  r.totalCommits.Load(),
	}
}

// StreamMetrics accumulates statistics for one connection. Its methods are
// called from the connection loop only.
type StreamMetrics struct {
	recorder *Recorder
	logger   log.Logger

	started time.Time
	frames  int
	cached  int
	dropped int
	accepts int
	deletes int
	resets  int
	closed  atomic.Bool
}

// StartStream begins tracking a connection.
func (r *Recorder) StartStream(sessionID string) *StreamMetrics {
	if r == nil {
		return nil
	}
	r.totalStreams.Add(1)
	r.activeStreams.Add(1)
	r.metrics.connectionOpened()

	return &StreamMetrics{
		recorder: r,
		logger:   log.With(r.logger, log.String("session_id", sessionID)),
		started:  r.now(),
	}
}

// RecordFrame counts a classified frame.
func (s *StreamMetrics) RecordFrame(cached bool, d time.Duration) {
	if s == nil {
		return
	}
	s.frames++
	s.recorder.totalFrames.Add(1)
	if cached {
		s.cached++
		s.recorder.metrics.frame(OutcomeCached, 0)
		return
	}
	s.recorder.metrics.frame(OutcomeClassified, d)
}

// RecordDropped counts a frame that was skipped before classification.
func (s *StreamMetrics) RecordDropped(err error) {
	if s == nil {
		return
	}
	s.dropped++
	s.recorder.totalDropped.Add(1)
	s.recorder.metrics.frame(OutcomeDropped, 0)
	s.logger.Debug("frame dropped", log.Err(err))
}

// RecordCommit counts an accept or delete. kind is "accept" or "delete".
func (s *StreamMetrics) RecordCommit(kind string) {
	if s == nil {
		return
	}
	switch kind {
	case "accept":
		s.accepts++
	case "delete":
		s.deletes++
	}
	s.recorder.totalCommits.Add(1)
	s.recorder.metrics.commit(kind)
}

// RecordReset counts a client reset.
func (s *StreamMetrics) RecordReset() {
	if s == nil {
		return
	}
	s.resets++
	s.recorder.metrics.reset()
}

// Finish logs a summary of the connection. Calls after the first are ignored.
func (s *StreamMetrics) Finish(err error) {
	if s == nil {
		return
	}
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.recorder.activeStreams.Add(-1)
	s.recorder.metrics.connectionClosed()

	fields := []log.Field{
		log.Duration("duration", s.recorder.now().Sub(s.started)),
		log.Int("frames", s.frames),
		log.Int("cached", s.cached),
		log.Int("dropped", s.dropped),
		log.Int("accepts", s.accepts),
		log.Int("deletes", s.deletes),
		log.Int("resets", s.resets),
	}
	if err != nil {
		s.logger.Warn("session closed with error", append(fields, log.Err(err))...)
		return
	}
	s.logger.Info("session closed", fields...)
}
