package state

import (
	"time"

	"github.com/michaelpento.lv/arbscanner/types"
)

// TickRecorder writes one tick's results into the run that was active when
// the tick began. Once that run is stopped and a new one started, every
// write is dropped.
type TickRecorder struct {
	s   *RunState
	gen uint64
}

// BeginTick stamps a tick with the current run generation. ok is false when
// no run is active.
func (s *RunState) BeginTick() (rec TickRecorder, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TickRecorder{s: s, gen: s.gen}, s.running
}

// Current reports whether the tick's run is still the active one
func (t TickRecorder) Current() bool {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.currentLocked()
}

func (t TickRecorder) currentLocked() bool {
	return t.s.running && t.s.gen == t.gen
}

func (t TickRecorder) RecordTick(chainKey string) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.currentLocked() {
		t.s.recordTickLocked(chainKey)
	}
}

func (t TickRecorder) RecordScan(latency time.Duration) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.currentLocked() {
		t.s.recordScanLocked(latency)
	}
}

func (t TickRecorder) RecordStrategyScan(kind types.Strategy, opps []*types.Opportunity, err error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.currentLocked() {
		t.s.recordStrategyScanLocked(kind, opps, err)
	}
}

func (t TickRecorder) SetLatest(opps []*types.Opportunity) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.currentLocked() {
		t.s.latest = append([]*types.Opportunity(nil), opps...)
	}
}

func (t TickRecorder) PrependHistory(opps []*types.Opportunity) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.currentLocked() {
		t.s.prependHistoryLocked(opps)
	}
}
