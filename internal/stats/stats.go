// Package stats counts waitlist outcomes. Recording is best effort: callers
// ignore errors and a failing store never affects a request.
package stats

import "context"

// Event is one finished join or check.
type Event struct {
	Operation string
	Outcome   string
}

type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Reader exposes cumulative counters keyed "operation:outcome".
type Reader interface {
	Totals(ctx context.Context) (map[string]int64, error)
}

func field(ev Event) string {
	return ev.Operation + ":" + ev.Outcome
}
