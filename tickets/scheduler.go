package tickets

import (
	"sync"
	"time"
)

// scheduler holds at most one pending deferred task per ticket. Scheduling
// again replaces the earlier task; Cancel stops it.
type scheduler struct {
	mu     sync.Mutex
	seq    uint64
	timers map[string]scheduled
}

type scheduled struct {
	seq   uint64
	timer *time.Timer
}

func newScheduler() *scheduler {
	return &scheduler{timers: make(map[string]scheduled)}
}

func (s *scheduler) Schedule(id string, after time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[id]; ok {
		prev.timer.Stop()
	}
	s.seq++
	seq := s.seq
	s.timers[id] = scheduled{
		seq: seq,
		timer: time.AfterFunc(after, func() {
			s.mu.Lock()
			if cur, ok := s.timers[id]; ok && cur.seq == seq {
				delete(s.timers, id)
			}
			s.mu.Unlock()
			fn()
		}),
	}
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	return prev.timer.Stop()
}

func (s *scheduler) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

func (s *scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.timer.Stop()
		delete(s.timers, id)
	}
}
