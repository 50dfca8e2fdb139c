package session

import (
	"errors"
	"fmt"
)

// ErrConnectionLost resolves every outstanding request when the connection
// dies, whether from heartbeat failure, socket closure or an explicit stop.
var ErrConnectionLost = errors.New("connection lost")

// ErrRequestTimeout marks a request whose response never arrived within
// the per-request deadline. The connection itself may still be healthy.
var ErrRequestTimeout = errors.New("request timed out")

// LoginError is fatal for one connection attempt. The caller decides
// whether to retry with a fresh one-time code.
type LoginError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoginError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("login rejected: %s (%s)", e.Code, e.Message)
	}
	return fmt.Sprintf("login failed: %v", e.Err)
}

func (e *LoginError) Unwrap() error { return e.Err }

// ServerError is a per-action rejection from the game server, carried on
// the response envelope. Schedulers log these and move on.
type ServerError struct {
	ReqType string
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s rejected: %s (%s)", e.ReqType, e.Code, e.Message)
}
