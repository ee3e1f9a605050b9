package store

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is how many records pass between sweeps of idle keys.
const sweepEvery = 1024

type requestLog struct {
	window     time.Duration
	timestamps []time.Time
}

// RateLimitMemoryStore is a single-process ratelimit.Store, used when Redis is
// not configured.
type RateLimitMemoryStore struct {
	mu      sync.Mutex
	logs    map[string]*requestLog
	records int
	now     func() time.Time
}

// NewRateLimitMemoryStore creates an empty in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		logs: make(map[string]*requestLog),
		now:  time.Now,
	}
}

// Record appends a request for key and returns how many fall within window.
// Timestamps are kept in order, so expired ones are always a prefix.
func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	s.records++
	if s.records%sweepEvery == 0 {
		s.sweep(now)
	}

	log, ok := s.logs[key]
	if !ok {
		log = &requestLog{}
		s.logs[key] = log
	}

	log.window = window
	log.timestamps = append(pruneBefore(log.timestamps, now.Add(-window)), now)

	return int64(len(log.timestamps)), nil
}

// Keys returns how many keys are tracked.
func (s *RateLimitMemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.logs)
}

// sweep drops keys whose newest request has left its window, so one-off
// clients do not accumulate.
func (s *RateLimitMemoryStore) sweep(now time.Time) {
	for key, log := range s.logs {
		last := log.timestamps[len(log.timestamps)-1]
		if !last.After(now.Add(-log.window)) {
			delete(s.logs, key)
		}
	}
}

func pruneBefore(timestamps []time.Time, cutoff time.Time) []time.Time {
	expired := 0
	for expired < len(timestamps) && !timestamps[expired].After(cutoff) {
		expired++
	}

	return timestamps[expired:]
}
