// Package gatetest runs an in-process fake of the farm gate over a real
// websocket, so session and client tests exercise the actual framing and
// correlation paths instead of mocks.
package gatetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"farmhand.ai/internal/codec"
	"farmhand.ai/internal/protocol"
)

// Handler serves one decoded request frame. It replies (or not) through c.
type Handler func(c *Conn, seq uint32, req any)

type Gate struct {
	t   *testing.T
	reg *codec.Registry
	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	silenced map[string]bool
	conns    []*Conn

	// Login is the canned snapshot served for LOGIN_REQ unless a custom
	// handler overrides it.
	Login *protocol.LoginResp
}

func New(t *testing.T, reg *codec.Registry) *Gate {
	t.Helper()
	g := &Gate{
		t:        t,
		reg:      reg,
		handlers: make(map[string]Handler),
		silenced: make(map[string]bool),
		Login: &protocol.LoginResp{
			Token:  "tok-test",
			UID:    "u1",
			Player: protocol.PlayerInfo{UID: "u1", Name: "farmer", Level: 5, Exp: 10, NextLevelExp: 100, Gold: 1000},
		},
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := &Conn{gate: g, ws: ws}
		g.mu.Lock()
		g.conns = append(g.conns, c)
		g.mu.Unlock()
		g.serve(c)
	}))
	t.Cleanup(g.Close)
	return g
}

// URL returns the ws:// endpoint of the fake gate.
func (g *Gate) URL() string {
	return "ws" + strings.TrimPrefix(g.srv.URL, "http")
}

func (g *Gate) Close() {
	g.mu.Lock()
	conns := g.conns
	g.conns = nil
	g.mu.Unlock()
	for _, c := range conns {
		_ = c.ws.Close()
	}
	g.srv.Close()
}

// Handle installs a handler for one request type.
func (g *Gate) Handle(msgType string, h Handler) {
	g.mu.Lock()
	g.handlers[msgType] = h
	g.mu.Unlock()
}

// Silence makes the gate swallow requests of the given type without
// replying, e.g. to starve heartbeats.
func (g *Gate) Silence(msgType string) {
	g.mu.Lock()
	g.silenced[msgType] = true
	g.mu.Unlock()
}

// Push sends an unsolicited frame (seq 0) to every live connection.
func (g *Gate) Push(msgType string, msg any) {
	payload, err := g.reg.Encode(msgType, msg)
	if err != nil {
		g.t.Errorf("gatetest push %s: %v", msgType, err)
		return
	}
	g.broadcast(protocol.Envelope{Type: msgType, Payload: payload})
}

func (g *Gate) broadcast(env protocol.Envelope) {
	frame, _ := json.Marshal(env)
	g.mu.Lock()
	conns := append([]*Conn(nil), g.conns...)
	g.mu.Unlock()
	for _, c := range conns {
		c.write(frame)
	}
}

func (g *Gate) serve(c *Conn) {
	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.DecodeEnvelope(frame)
		if err != nil {
			g.t.Errorf("gatetest: unparseable frame: %v", err)
			continue
		}

		g.mu.Lock()
		h := g.handlers[env.Type]
		silent := g.silenced[env.Type]
		g.mu.Unlock()
		if silent {
			continue
		}

		req, err := g.reg.Decode(env.Type, env.Payload)
		if err != nil {
			g.t.Errorf("gatetest: %s payload: %v", env.Type, err)
			continue
		}
		if h != nil {
			h(c, env.Seq, req)
			continue
		}
		g.serveDefault(c, env.Seq, env.Type)
	}
}

func (g *Gate) serveDefault(c *Conn, seq uint32, msgType string) {
	switch msgType {
	case protocol.TypeLoginReq:
		g.mu.Lock()
		login := g.Login
		g.mu.Unlock()
		c.Reply(seq, protocol.TypeLoginResp, login)
	case protocol.TypeHeartbeatReq:
		c.Reply(seq, protocol.TypeHeartbeatResp, &protocol.HeartbeatResp{TS: 1})
	default:
		c.ReplyCode(seq, respTypeOf(g.reg, msgType), "E_UNHANDLED", "no gatetest handler")
	}
}

func respTypeOf(reg *codec.Registry, reqType string) string {
	if rt, ok := reg.ResponseType(reqType); ok {
		return rt
	}
	return reqType
}

// Conn is the server side of one websocket connection.
type Conn struct {
	gate *Gate

	mu sync.Mutex
	ws *websocket.Conn
}

func (c *Conn) write(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteMessage(websocket.TextMessage, frame)
}

// Reply sends a correlated response.
func (c *Conn) Reply(seq uint32, msgType string, msg any) {
	payload, err := c.gate.reg.Encode(msgType, msg)
	if err != nil {
		c.gate.t.Errorf("gatetest reply %s: %v", msgType, err)
		return
	}
	c.Send(protocol.Envelope{Type: msgType, Seq: seq, Payload: payload})
}

// ReplyCode sends a correlated rejection.
func (c *Conn) ReplyCode(seq uint32, msgType, code, msg string) {
	c.Send(protocol.Envelope{Type: msgType, Seq: seq, Code: code, Msg: msg})
}

// Send writes an arbitrary envelope, for tests poking at correlation edges.
func (c *Conn) Send(env protocol.Envelope) {
	frame, _ := json.Marshal(env)
	c.write(frame)
}
