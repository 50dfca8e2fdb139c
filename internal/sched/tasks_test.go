package sched

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmhand.ai/internal/protocol"
)

func TestTasks_ClaimsOnlyCompletedUnclaimed(t *testing.T) {
	c := newFakeCaller(t)
	m := seedModel(100)
	tk := NewTasks(c, m, TasksConfig{}, testLogger(), nil)

	c.handle(protocol.TypeTaskListReq, func(any) (any, error) {
		return &protocol.TaskListResp{Tasks: []protocol.TaskInfo{
			{ID: 1, Name: "water 3 times", Completed: true, Claimed: false},
			{ID: 2, Name: "plant a crop", Completed: false, Claimed: false},
			{ID: 3, Name: "daily login", Completed: true, Claimed: true},
			{ID: 4, Name: "harvest once", Completed: true, Claimed: false, ShareEligible: true},
		}}, nil
	})
	c.handle(protocol.TypeClaimTaskReq, func(req any) (any, error) {
		cr := req.(*protocol.ClaimTaskReq)
		if cr.TaskID == 4 {
			assert.True(t, cr.Share, "share multiplier requested when eligible")
			return &protocol.ClaimTaskResp{Exp: 30, Gold: 160, Multiplier: 3}, nil
		}
		assert.False(t, cr.Share)
		return &protocol.ClaimTaskResp{Exp: 10, Gold: 130, Multiplier: 1}, nil
	})

	tk.Pass(context.Background())

	claims := c.callsOf(protocol.TypeClaimTaskReq)
	require.Len(t, claims, 2)
	assert.Equal(t, 1, claims[0].(*protocol.ClaimTaskReq).TaskID)
	assert.Equal(t, 4, claims[1].(*protocol.ClaimTaskReq).TaskID)

	p := m.Player()
	assert.Equal(t, int64(40), p.Exp, "claim rewards accumulate")
	assert.Equal(t, int64(160), p.Gold, "gold is the reported balance, not a delta")
}

func TestTasks_ClaimFailureSkipsTask(t *testing.T) {
	c := newFakeCaller(t)
	tk := NewTasks(c, seedModel(100), TasksConfig{}, testLogger(), nil)

	c.handle(protocol.TypeTaskListReq, func(any) (any, error) {
		return &protocol.TaskListResp{Tasks: []protocol.TaskInfo{
			{ID: 1, Completed: true},
			{ID: 2, Completed: true},
		}}, nil
	})
	c.handle(protocol.TypeClaimTaskReq, func(req any) (any, error) {
		if req.(*protocol.ClaimTaskReq).TaskID == 1 {
			return nil, context.DeadlineExceeded
		}
		return &protocol.ClaimTaskResp{Exp: 5, Gold: 105}, nil
	})

	tk.Pass(context.Background())
	assert.Len(t, c.callsOf(protocol.TypeClaimTaskReq), 2, "task 2 still claimed after task 1 failed")
}

func TestTasks_ListFailureSkipsCycle(t *testing.T) {
	c := newFakeCaller(t)
	tk := NewTasks(c, seedModel(100), TasksConfig{}, testLogger(), nil)
	c.handle(protocol.TypeTaskListReq, func(any) (any, error) {
		return nil, context.DeadlineExceeded
	})

	tk.Pass(context.Background())
	assert.Equal(t, []string{protocol.TypeTaskListReq}, c.callOrder())
}
