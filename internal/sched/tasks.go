package sched

import (
	"context"
	"log"
	"time"

	"farmhand.ai/internal/journal"
	"farmhand.ai/internal/protocol"
	"farmhand.ai/internal/world"
)

type TasksConfig struct {
	Interval time.Duration
}

// Tasks polls reward state and claims completed tasks, applying the share
// multiplier where the task is eligible.
type Tasks struct {
	c   Caller
	w   *world.Model
	cfg TasksConfig
	log *log.Logger
	j   Journal
}

func NewTasks(c Caller, w *world.Model, cfg TasksConfig, logger *log.Logger, j Journal) *Tasks {
	return &Tasks{c: c, w: w, cfg: cfg, log: logger, j: j}
}

func (t *Tasks) Run(ctx context.Context) {
	for {
		if t.c.Ready() {
			t.Pass(ctx)
		}
		if !sleepCtx(ctx, t.cfg.Interval) {
			return
		}
	}
}

func (t *Tasks) Pass(ctx context.Context) {
	resp, err := call[protocol.TaskListResp](ctx, t.c, protocol.TypeTaskListReq, &protocol.TaskListReq{})
	if err != nil {
		t.log.Printf("task list: %v", err)
		return
	}
	for _, task := range resp.Tasks {
		if ctx.Err() != nil {
			return
		}
		if !task.Completed || task.Claimed {
			continue
		}
		t.claim(ctx, task)
	}
}

// claim is non-fatal per task: already-claimed or not-yet-eligible just
// skips this cycle.
func (t *Tasks) claim(ctx context.Context, task protocol.TaskInfo) {
	resp, err := call[protocol.ClaimTaskResp](ctx, t.c, protocol.TypeClaimTaskReq, &protocol.ClaimTaskReq{
		TaskID: task.ID,
		Share:  task.ShareEligible,
	})
	if err != nil {
		t.log.Printf("claim task %d (%s): %v", task.ID, task.Name, err)
		return
	}
	t.w.AddExp(resp.Exp)
	t.w.SetGold(resp.Gold)
	t.log.Printf("claimed task %d (%s): +%d exp, x%d", task.ID, task.Name, resp.Exp, resp.Multiplier)
	record(t.j, journal.Action{Kind: "claim_task", ItemID: task.ID, Exp: resp.Exp, Count: resp.Multiplier})
}
