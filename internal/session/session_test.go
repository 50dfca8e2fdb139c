package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"farmhand.ai/internal/codec"
	"farmhand.ai/internal/gatetest"
	"farmhand.ai/internal/protocol"
	"farmhand.ai/internal/session"
)

func newRegistry(t *testing.T) *codec.Registry {
	t.Helper()
	reg, err := codec.Load(codec.DefaultCatalog, protocol.Types())
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return reg
}

func dial(t *testing.T, g *gatetest.Gate, reg *codec.Registry, opts session.Options) (*session.Session, *protocol.LoginResp) {
	t.Helper()
	opts.GateURL = g.URL()
	s, login, err := session.Dial(context.Background(), reg, "code-1", opts)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(s.Close)
	return s, login
}

func TestDial_LoginSuccess(t *testing.T) {
	reg := newRegistry(t)
	g := gatetest.New(t, reg)
	g.Login.Lands = []protocol.LandInfo{{ID: 1, Unlocked: true}, {ID: 2, Unlocked: false}}

	s, login := dial(t, g, reg, session.Options{})

	if !s.Ready() {
		t.Fatalf("state = %s, want Ready", s.State())
	}
	if s.Token() != "tok-test" || s.UID() != "u1" {
		t.Fatalf("token/uid = %q/%q", s.Token(), s.UID())
	}
	if len(login.Lands) != 2 {
		t.Fatalf("snapshot lands = %d, want 2", len(login.Lands))
	}
}

func TestDial_LoginRejected(t *testing.T) {
	reg := newRegistry(t)
	g := gatetest.New(t, reg)
	g.Handle(protocol.TypeLoginReq, func(c *gatetest.Conn, seq uint32, req any) {
		c.ReplyCode(seq, protocol.TypeLoginResp, protocol.CodeBadCode, "code expired")
	})

	_, _, err := session.Dial(context.Background(), reg, "stale", session.Options{GateURL: g.URL()})
	var le *session.LoginError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *LoginError", err)
	}
	if le.Code != protocol.CodeBadCode {
		t.Fatalf("code = %q, want %q", le.Code, protocol.CodeBadCode)
	}
}

func TestCall_CorrelationStrictBySequence(t *testing.T) {
	reg := newRegistry(t)
	g := gatetest.New(t, reg)
	g.Handle(protocol.TypeLandsReq, func(c *gatetest.Conn, seq uint32, req any) {
		// A rejection on the wrong sequence must not resolve our handle...
		c.Send(protocol.Envelope{Type: protocol.TypeLandsResp, Seq: seq + 1, Code: "E_WRONG", Msg: "alien seq"})
		// ...only the matching sequence does.
		payload, _ := reg.Encode(protocol.TypeLandsResp, &protocol.LandsResp{UID: "u1", Lands: []protocol.LandInfo{{ID: 7, Unlocked: true}}})
		c.Send(protocol.Envelope{Type: protocol.TypeLandsResp, Seq: seq, Payload: payload})
		// A duplicate for the same handle is dropped, not fatal.
		c.Send(protocol.Envelope{Type: protocol.TypeLandsResp, Seq: seq, Payload: payload})
	})

	s, _ := dial(t, g, reg, session.Options{})

	resp, err := s.Call(context.Background(), protocol.TypeLandsReq, &protocol.LandsReq{})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	lands := resp.(*protocol.LandsResp)
	if len(lands.Lands) != 1 || lands.Lands[0].ID != 7 {
		t.Fatalf("resp = %+v", lands)
	}

	// The session stays healthy after the duplicate frame.
	if _, err := s.Call(context.Background(), protocol.TypeLandsReq, &protocol.LandsReq{}); err != nil {
		t.Fatalf("second call: %v", err)
	}
}

func TestCall_ServerRejectionIsPerAction(t *testing.T) {
	reg := newRegistry(t)
	g := gatetest.New(t, reg)
	g.Handle(protocol.TypeHarvestReq, func(c *gatetest.Conn, seq uint32, req any) {
		c.ReplyCode(seq, protocol.TypeHarvestResp, protocol.CodeNotMature, "too early")
	})

	s, _ := dial(t, g, reg, session.Options{})

	_, err := s.Call(context.Background(), protocol.TypeHarvestReq, &protocol.HarvestReq{LandID: 1})
	var se *session.ServerError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *ServerError", err)
	}
	if se.Code != protocol.CodeNotMature {
		t.Fatalf("code = %q", se.Code)
	}
	if !s.Ready() {
		t.Fatalf("per-action rejection must not kill the session")
	}
}

func TestCall_TimeoutLeavesSessionAlive(t *testing.T) {
	reg := newRegistry(t)
	g := gatetest.New(t, reg)
	g.Silence(protocol.TypeLandsReq)

	s, _ := dial(t, g, reg, session.Options{RequestTimeout: 50 * time.Millisecond})

	_, err := s.Call(context.Background(), protocol.TypeLandsReq, &protocol.LandsReq{})
	if !errors.Is(err, session.ErrRequestTimeout) {
		t.Fatalf("err = %v, want ErrRequestTimeout", err)
	}
	if !s.Ready() {
		t.Fatalf("one lost response must not kill the session")
	}
}

func TestHeartbeat_TwoMissesDisconnect(t *testing.T) {
	reg := newRegistry(t)
	g := gatetest.New(t, reg)
	g.Silence(protocol.TypeHeartbeatReq)

	s, _ := dial(t, g, reg, session.Options{
		HeartbeatInterval: 25 * time.Millisecond,
		RequestTimeout:    30 * time.Millisecond,
	})

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session never disconnected; state = %s", s.State())
	}
	if s.State() != session.StateDisconnected {
		t.Fatalf("state = %s, want Disconnected", s.State())
	}
	if !errors.Is(s.Err(), session.ErrConnectionLost) {
		t.Fatalf("err = %v, want ErrConnectionLost", s.Err())
	}

	// The disconnect event is the last one delivered.
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-s.Events():
			if ev.Name == session.EventDisconnected {
				return
			}
		case <-deadline:
			t.Fatalf("no disconnect event")
		}
	}
}

func TestHeartbeat_AcksKeepSessionAlive(t *testing.T) {
	reg := newRegistry(t)
	g := gatetest.New(t, reg) // default handler acks heartbeats

	s, _ := dial(t, g, reg, session.Options{
		HeartbeatInterval: 20 * time.Millisecond,
		RequestTimeout:    200 * time.Millisecond,
	})

	time.Sleep(150 * time.Millisecond)
	if !s.Ready() {
		t.Fatalf("session died despite acked heartbeats: %v", s.Err())
	}
}

func TestDisconnect_FailsOutstandingCall(t *testing.T) {
	reg := newRegistry(t)
	g := gatetest.New(t, reg)
	started := make(chan struct{})
	g.Handle(protocol.TypeLandsReq, func(c *gatetest.Conn, seq uint32, req any) {
		close(started)
		// Never reply; the socket dies underneath the pending call.
	})

	s, _ := dial(t, g, reg, session.Options{RequestTimeout: 2 * time.Second})

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Call(context.Background(), protocol.TypeLandsReq, &protocol.LandsReq{})
		errCh <- err
	}()

	<-started
	g.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, session.ErrConnectionLost) {
			t.Fatalf("err = %v, want ErrConnectionLost", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("pending call never resolved")
	}
}

func TestPushEvents_RoutedByName(t *testing.T) {
	reg := newRegistry(t)
	g := gatetest.New(t, reg)
	s, _ := dial(t, g, reg, session.Options{})

	g.Push(protocol.TypeLandsPush, &protocol.LandsPush{Lands: []protocol.LandInfo{{ID: 3, Unlocked: true}}})
	g.Push(protocol.TypeFriendApplicationPush, &protocol.FriendApplicationPush{UID: "u9", Name: "mallory"})

	want := map[string]bool{session.EventLandsChanged: false, session.EventFriendApplication: false}
	deadline := time.After(time.Second)
	for n := 0; n < 2; n++ {
		select {
		case ev := <-s.Events():
			switch ev.Name {
			case session.EventLandsChanged:
				if ev.Msg.(*protocol.LandsPush).Lands[0].ID != 3 {
					t.Fatalf("lands push payload: %+v", ev.Msg)
				}
			case session.EventFriendApplication:
				if ev.Msg.(*protocol.FriendApplicationPush).UID != "u9" {
					t.Fatalf("application push payload: %+v", ev.Msg)
				}
			}
			want[ev.Name] = true
		case <-deadline:
			t.Fatalf("missing events: %v", want)
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("event %s never delivered", name)
		}
	}
}

func TestClose_FailsFastAndIsIdempotent(t *testing.T) {
	reg := newRegistry(t)
	g := gatetest.New(t, reg)
	s, _ := dial(t, g, reg, session.Options{})

	s.Close()
	s.Close()

	if s.State() != session.StateDisconnected {
		t.Fatalf("state = %s", s.State())
	}
	if _, err := s.Call(context.Background(), protocol.TypeLandsReq, &protocol.LandsReq{}); !errors.Is(err, session.ErrConnectionLost) {
		t.Fatalf("err = %v, want ErrConnectionLost", err)
	}
}
