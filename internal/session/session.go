// Package session owns the gate socket: it frames outbound requests,
// correlates responses by sequence number, routes unsolicited pushes to
// named events and runs the heartbeat. One Session covers one login; a
// reconnect is a brand-new Session created by the orchestrator.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"farmhand.ai/internal/codec"
	"farmhand.ai/internal/protocol"
)

// State machine: Connecting -> LoggingIn -> Ready -> Disconnected.
// Disconnected is terminal for the instance.
type State int32

const (
	StateConnecting State = iota
	StateLoggingIn
	StateReady
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateLoggingIn:
		return "LoggingIn"
	case StateReady:
		return "Ready"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Named push events delivered to the orchestrator. Delivery is
// fire-and-forget, at most once per physical frame.
const (
	EventLandsChanged      = "lands-changed"
	EventFriendApplication = "friend-application"
	EventDisconnected      = "disconnected"
)

type Event struct {
	Name string
	Msg  any
}

// Frame directions for the optional capture hook.
const (
	DirIn  = "in"
	DirOut = "out"
)

// FrameRecorder captures raw wire frames for offline analysis. Recording
// must not block; errors are the recorder's problem.
type FrameRecorder interface {
	RecordFrame(dir string, frame []byte)
}

type Options struct {
	GateURL           string // empty selects the platform default
	Platform          string // "qq" or "wx"
	OS                string
	ClientVersion     string
	HeartbeatInterval time.Duration
	RequestTimeout    time.Duration
	Logger            *log.Logger
	Frames            FrameRecorder
}

const (
	defaultHeartbeatInterval = 25 * time.Second
	defaultRequestTimeout    = 5 * time.Second
	writeTimeout             = 5 * time.Second

	// Two consecutive missed heartbeat acks mean the connection is dead.
	heartbeatMissLimit = 2
)

func (o *Options) withDefaults() {
	if o.GateURL == "" {
		if o.Platform == "wx" {
			o.GateURL = protocol.GateURLWX
		} else {
			o.GateURL = protocol.GateURLQQ
		}
	}
	if o.Platform == "" {
		o.Platform = "qq"
	}
	if o.OS == "" {
		o.OS = "iOS"
	}
	if o.ClientVersion == "" {
		o.ClientVersion = protocol.ClientVersion
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = defaultHeartbeatInterval
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard, "", 0)
	}
}

type result struct {
	msg any
	err error
}

type pendingCall struct {
	respType string
	ch       chan result // buffered(1); resolved exactly once
}

type Session struct {
	reg  *codec.Registry
	opts Options
	log  *log.Logger
	conn *websocket.Conn

	seq   atomic.Uint32
	state atomic.Int32

	mu      sync.Mutex // guards pending
	pending map[uint32]*pendingCall

	writeMu sync.Mutex

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error

	token    string
	uid      string
	deviceID string
}

// Dial opens the gate connection and runs the login exchange. On success
// the Session is Ready and the returned snapshot seeds the world model.
// A server-side rejection surfaces as *LoginError.
func Dial(ctx context.Context, reg *codec.Registry, code string, opts Options) (*Session, *protocol.LoginResp, error) {
	opts.withDefaults()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, opts.GateURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", opts.GateURL, err)
	}

	s := &Session{
		reg:      reg,
		opts:     opts,
		log:      opts.Logger,
		conn:     conn,
		pending:  make(map[uint32]*pendingCall),
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
		deviceID: uuid.NewString(),
	}
	s.state.Store(int32(StateLoggingIn))
	go s.readLoop()

	resp, err := s.call(ctx, protocol.TypeLoginReq, &protocol.LoginReq{
		Code:          code,
		Platform:      opts.Platform,
		OS:            opts.OS,
		ClientVersion: opts.ClientVersion,
		DeviceID:      s.deviceID,
	})
	if err != nil {
		s.fail(fmt.Errorf("login: %w", ErrConnectionLost))
		var se *ServerError
		if errors.As(err, &se) {
			return nil, nil, &LoginError{Code: se.Code, Message: se.Message, Err: err}
		}
		return nil, nil, &LoginError{Err: err}
	}
	login, ok := resp.(*protocol.LoginResp)
	if !ok {
		s.fail(fmt.Errorf("login: %w", ErrConnectionLost))
		return nil, nil, &LoginError{Err: fmt.Errorf("unexpected login response %T", resp)}
	}

	s.token = login.Token
	s.uid = login.UID
	s.state.Store(int32(StateReady))
	go s.heartbeatLoop()
	s.log.Printf("logged in uid=%s platform=%s lands=%d", s.uid, opts.Platform, len(login.Lands))
	return s, login, nil
}

func (s *Session) State() State { return State(s.state.Load()) }

// Ready reports whether application requests may be issued.
func (s *Session) Ready() bool { return s.State() == StateReady }

func (s *Session) Token() string { return s.token }

func (s *Session) UID() string { return s.uid }

// Events delivers push events and the final disconnect notification.
// The channel is never closed; select against Done.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed once the Session reaches Disconnected.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the cause of the disconnect, nil while the Session lives.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close tears the connection down, failing all outstanding requests with
// ErrConnectionLost. Safe to call more than once.
func (s *Session) Close() {
	s.fail(fmt.Errorf("session closed: %w", ErrConnectionLost))
}

// Call issues one request and blocks until its correlated response, the
// per-request timeout, or ctx. Only valid in Ready.
func (s *Session) Call(ctx context.Context, msgType string, req any) (any, error) {
	if s.State() != StateReady {
		return nil, fmt.Errorf("session %s: %w", s.State(), ErrConnectionLost)
	}
	return s.call(ctx, msgType, req)
}

func (s *Session) call(ctx context.Context, msgType string, req any) (any, error) {
	respType, ok := s.reg.ResponseType(msgType)
	if !ok {
		return nil, fmt.Errorf("%s is not a request type", msgType)
	}
	payload, err := s.reg.Encode(msgType, req)
	if err != nil {
		return nil, err
	}

	seq := s.seq.Add(1)
	frame, err := json.Marshal(protocol.Envelope{Type: msgType, Seq: seq, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("frame %s: %w", msgType, err)
	}

	pc := &pendingCall{respType: respType, ch: make(chan result, 1)}
	s.mu.Lock()
	if s.State() == StateDisconnected {
		s.mu.Unlock()
		return nil, ErrConnectionLost
	}
	s.pending[seq] = pc
	s.mu.Unlock()

	if err := s.writeFrame(frame); err != nil {
		s.dropPending(seq)
		s.fail(fmt.Errorf("write: %w", err))
		return nil, fmt.Errorf("send %s: %w", msgType, ErrConnectionLost)
	}

	timer := time.NewTimer(s.opts.RequestTimeout)
	defer timer.Stop()
	select {
	case r := <-pc.ch:
		return r.msg, r.err
	case <-ctx.Done():
		s.dropPending(seq)
		return nil, ctx.Err()
	case <-timer.C:
		s.dropPending(seq)
		return nil, fmt.Errorf("%s seq=%d: %w", msgType, seq, ErrRequestTimeout)
	}
}

func (s *Session) writeFrame(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return err
	}
	if s.opts.Frames != nil {
		s.opts.Frames.RecordFrame(DirOut, frame)
	}
	return nil
}

func (s *Session) dropPending(seq uint32) {
	s.mu.Lock()
	delete(s.pending, seq)
	s.mu.Unlock()
}

func (s *Session) readLoop() {
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(fmt.Errorf("read: %w", ErrConnectionLost))
			return
		}
		if s.opts.Frames != nil {
			s.opts.Frames.RecordFrame(DirIn, frame)
		}

		env, err := protocol.DecodeEnvelope(frame)
		if err != nil {
			s.log.Printf("drop unparseable frame (%d bytes): %v", len(frame), err)
			continue
		}

		if env.Seq != 0 {
			s.mu.Lock()
			pc, ok := s.pending[env.Seq]
			if ok {
				delete(s.pending, env.Seq)
			}
			s.mu.Unlock()
			if !ok {
				// Late, duplicate or alien sequence. Never fatal.
				s.log.Printf("drop %s seq=%d: no pending request", env.Type, env.Seq)
				continue
			}
			pc.ch <- s.resolve(pc, env)
			continue
		}

		s.dispatchPush(env)
	}
}

func (s *Session) resolve(pc *pendingCall, env protocol.Envelope) result {
	if env.Code != "" {
		return result{err: &ServerError{ReqType: env.Type, Code: env.Code, Message: env.Msg}}
	}
	if env.Type != pc.respType {
		s.log.Printf("seq=%d: response type %s, expected %s", env.Seq, env.Type, pc.respType)
	}
	msg, err := s.reg.Decode(pc.respType, env.Payload)
	if err != nil {
		return result{err: err}
	}
	return result{msg: msg}
}

func (s *Session) dispatchPush(env protocol.Envelope) {
	var name string
	switch env.Type {
	case protocol.TypeLandsPush:
		name = EventLandsChanged
	case protocol.TypeFriendApplicationPush:
		name = EventFriendApplication
	default:
		s.log.Printf("drop push %s: no route", env.Type)
		return
	}
	msg, err := s.reg.Decode(env.Type, env.Payload)
	if err != nil {
		s.log.Printf("drop push %s: %v", env.Type, err)
		return
	}
	s.emit(Event{Name: name, Msg: msg})
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Printf("drop event %s: slow consumer", ev.Name)
	}
}

func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()

	misses := 0
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.opts.RequestTimeout)
			_, err := s.call(ctx, protocol.TypeHeartbeatReq, &protocol.HeartbeatReq{TS: time.Now().Unix()})
			cancel()
			if err == nil {
				misses = 0
				continue
			}
			if errors.Is(err, ErrConnectionLost) {
				return
			}
			misses++
			s.log.Printf("heartbeat miss %d/%d: %v", misses, heartbeatMissLimit, err)
			if misses >= heartbeatMissLimit {
				s.fail(fmt.Errorf("heartbeat: %w", ErrConnectionLost))
				return
			}
		}
	}
}

// fail moves the Session to Disconnected exactly once: closes the socket,
// resolves every pending request with ErrConnectionLost and emits the
// disconnect event.
func (s *Session) fail(cause error) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateDisconnected))
		s.errMu.Lock()
		s.err = cause
		s.errMu.Unlock()

		_ = s.conn.Close()

		s.mu.Lock()
		outstanding := s.pending
		s.pending = make(map[uint32]*pendingCall)
		s.mu.Unlock()
		for seq, pc := range outstanding {
			pc.ch <- result{err: fmt.Errorf("seq=%d: %w", seq, ErrConnectionLost)}
		}

		s.emit(Event{Name: EventDisconnected})
		close(s.done)
		s.log.Printf("disconnected: %v", cause)
	})
}
