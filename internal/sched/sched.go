// Package sched holds the patrol loops: self-farm, friend-farm, tasks and
// warehouse. Each loop is an independent timer-driven pass that reads the
// world model, decides actions and issues them sequentially through the
// session. One land's or one friend's failure never aborts the rest of a
// pass.
package sched

import (
	"context"
	"fmt"
	"time"

	"farmhand.ai/internal/journal"
)

// Caller is the slice of the transport session the schedulers need.
type Caller interface {
	Call(ctx context.Context, msgType string, req any) (any, error)
	Ready() bool
}

// Journal receives best-effort accounting rows. May be nil-backed; see
// record.
type Journal interface {
	RecordAction(journal.Action)
}

// call issues one typed request and asserts the response type.
func call[T any](ctx context.Context, c Caller, msgType string, req any) (*T, error) {
	resp, err := c.Call(ctx, msgType, req)
	if err != nil {
		return nil, err
	}
	v, ok := resp.(*T)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected response %T", msgType, resp)
	}
	return v, nil
}

// record writes one journal row if a journal is attached.
func record(j Journal, a journal.Action) {
	if j == nil {
		return
	}
	j.RecordAction(a)
}

// sleepCtx waits d or until ctx is done; false means stop.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
