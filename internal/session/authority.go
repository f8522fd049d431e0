// Package session tracks control connections and which of them have
// authenticated with the shared password.
package session

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lrc/internal/protocol"
)

// DefaultFailureDelay is how long a connection lives after a wrong password.
const DefaultFailureDelay = time.Second

// Conn is the part of a control connection the authority drives.
// Close must be safe to call more than once and after the peer left.
type Conn interface {
	Send(msg protocol.Message)
	Close()
}

// PasswordMatches compares in constant time.
func PasswordMatches(configured, supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(configured), []byte(supplied)) == 1
}

type entry struct {
	conn       Conn
	authorized bool
	kick       *time.Timer
	createdAt  time.Time
}

// Stats is a snapshot of the registry.
type Stats struct {
	Live       int `json:"live"`
	Authorized int `json:"authorized"`
}

// Authority is the registry of live control connections and the
// authorization set. An id is authorized only while its connection is live:
// OnDisconnect deletes the whole entry, so a late auth success cannot
// resurrect it.
type Authority struct {
	password     string
	failureDelay time.Duration
	logger       *zap.Logger

	mu    sync.Mutex
	conns map[uuid.UUID]*entry
}

// Option configures an Authority.
type Option func(*Authority)

// WithFailureDelay overrides the delay before a failed connection is closed.
func WithFailureDelay(d time.Duration) Option {
	return func(a *Authority) {
		a.failureDelay = d
	}
}

// NewAuthority creates an empty registry checking against password.
func NewAuthority(password string, logger *zap.Logger, opts ...Option) *Authority {
	a := &Authority{
		password:     password,
		failureDelay: DefaultFailureDelay,
		logger:       logger.With(zap.String("component", "session")),
		conns:        make(map[uuid.UUID]*entry),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OnConnect registers a new live connection and asks it to authenticate.
func (a *Authority) OnConnect(id uuid.UUID, conn Conn) {
	a.mu.Lock()
	a.conns[id] = &entry{conn: conn, createdAt: time.Now()}
	live := len(a.conns)
	a.mu.Unlock()

	a.logger.Debug("Connection registered", zap.String("connID", id.String()), zap.Int("live", live))
	conn.Send(protocol.NeedAuth())
}

// OnAuthAttempt checks password for id. On success id joins the
// authorization set. On failure the connection is told so and closed after
// the failure delay. Unknown (already closed) ids are ignored.
func (a *Authority) OnAuthAttempt(id uuid.UUID, password string) bool {
	ok := PasswordMatches(a.password, password)

	a.mu.Lock()
	e, live := a.conns[id]
	if !live {
		a.mu.Unlock()
		return false
	}
	if ok {
		e.authorized = true
	} else if e.kick == nil {
		conn := e.conn
		e.kick = time.AfterFunc(a.failureDelay, conn.Close)
	}
	a.mu.Unlock()

	if ok {
		a.logger.Info("Controller authorized", zap.String("connID", id.String()))
		e.conn.Send(protocol.AuthOK())
	} else {
		a.logger.Warn("Failed auth attempt", zap.String("connID", id.String()), zap.Duration("disconnect_in", a.failureDelay))
		e.conn.Send(protocol.AuthFailed())
	}
	return ok
}

// OnDisconnect forgets id and cancels any pending forced disconnect.
// Calling it for an unknown id is a no-op.
func (a *Authority) OnDisconnect(id uuid.UUID) {
	a.mu.Lock()
	e, ok := a.conns[id]
	if ok {
		delete(a.conns, id)
		if e.kick != nil {
			e.kick.Stop()
		}
	}
	a.mu.Unlock()

	if ok {
		a.logger.Debug("Connection deregistered",
			zap.String("connID", id.String()),
			zap.Bool("was_authorized", e.authorized),
			zap.Duration("age", time.Since(e.createdAt)))
	}
}

// IsAuthorized reports whether id is live and has authenticated.
func (a *Authority) IsAuthorized(id uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.conns[id]
	return ok && e.authorized
}

// Stats returns live and authorized connection counts.
func (a *Authority) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := Stats{Live: len(a.conns)}
	for _, e := range a.conns {
		if e.authorized {
			st.Authorized++
		}
	}
	return st
}

// CloseAll closes every live connection, used on shutdown.
func (a *Authority) CloseAll() {
	a.mu.Lock()
	conns := make([]Conn, 0, len(a.conns))
	for _, e := range a.conns {
		conns = append(conns, e.conn)
	}
	a.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
