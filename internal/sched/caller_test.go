package sched

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"farmhand.ai/internal/protocol"
	"farmhand.ai/internal/world"
)

// fakeCaller scripts per-type responses and records the exact call order.
type fakeCaller struct {
	t *testing.T

	mu       sync.Mutex
	ready    bool
	handlers map[string]func(req any) (any, error)
	calls    []string
	reqs     []any
}

func newFakeCaller(t *testing.T) *fakeCaller {
	return &fakeCaller{t: t, ready: true, handlers: make(map[string]func(req any) (any, error))}
}

func (f *fakeCaller) handle(msgType string, h func(req any) (any, error)) {
	f.mu.Lock()
	f.handlers[msgType] = h
	f.mu.Unlock()
}

func (f *fakeCaller) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeCaller) Call(_ context.Context, msgType string, req any) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, msgType)
	f.reqs = append(f.reqs, req)
	h := f.handlers[msgType]
	f.mu.Unlock()
	if h == nil {
		f.t.Fatalf("unscripted call %s", msgType)
	}
	return h(req)
}

// callsOf returns the recorded requests of one type.
func (f *fakeCaller) callsOf(msgType string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []any
	for i, typ := range f.calls {
		if typ == msgType {
			out = append(out, f.reqs[i])
		}
	}
	return out
}

func (f *fakeCaller) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// fixedNow pins a scheduler's clock.
func fixedNow(ts int64) func() time.Time {
	return func() time.Time { return time.Unix(ts, 0) }
}

// seedModel builds a model with one level-12 player holding gold.
func seedModel(gold int64) *world.Model {
	m := world.NewModel()
	m.ApplyLogin(&protocol.LoginResp{
		Token:  "tok",
		UID:    "u1",
		Player: protocol.PlayerInfo{UID: "u1", Level: 12, Exp: 0, NextLevelExp: 1000, Gold: gold},
	})
	return m
}

// Two test crops: radish is the lowest tier, pumpkin earns far more
// experience per grow second.
var testCrops = []protocol.CropInfo{
	{ID: 1, Name: "radish", LevelRequired: 1, SeedPrice: 5, GrowSeconds: 300, HarvestExp: 6, FruitID: 101},
	{ID: 9, Name: "pumpkin", LevelRequired: 10, SeedPrice: 50, GrowSeconds: 600, HarvestExp: 300, FruitID: 109},
}

func growingPlant(cropID int, start int64) *protocol.PlantInfo {
	return &protocol.PlantInfo{
		CropID:   cropID,
		CropName: "carrot",
		Phases: []protocol.PhaseRecord{
			{Phase: int(world.PhaseSeed), BeginTime: start},
			{Phase: int(world.PhaseMature), BeginTime: start + 600},
		},
	}
}
