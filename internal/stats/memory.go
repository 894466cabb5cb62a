package stats

import (
	"context"
	"maps"
	"sync"
)

// Memory keeps per-process counters. Fine for a single instance and tests.
type Memory struct {
	mu     sync.Mutex
	totals map[string]int64
}

func NewMemory() *Memory {
	return &Memory{totals: make(map[string]int64)}
}

func (m *Memory) Record(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[field(ev)]++
	return nil
}

func (m *Memory) Totals(context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.totals), nil
}
