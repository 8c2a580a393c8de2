// Package session drives one peer connection through negotiation, channel
// readiness, request/reply correlation, liveness pulses and periodic renegotiation.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rudransh-shrivastava/peer-assist/internal/protocol"
	"github.com/rudransh-shrivastava/peer-assist/internal/transport"
	"github.com/sirupsen/logrus"
)

const (
	DefaultReconnectInterval = 3 * time.Minute
	DefaultPollInterval      = time.Second
	DefaultRetryBackoff      = time.Second
	DefaultPulseInterval     = 5 * time.Second
	DefaultReplyTimeout      = 30 * time.Second
)

var (
	ErrUnknownChannel  = errors.New("unknown channel")
	ErrChannelNotReady = errors.New("channel not ready")
	ErrReplyTimeout    = errors.New("timed out waiting for reply")
	ErrRequestInFlight = errors.New("a request is already awaiting a reply")
	ErrSessionClosed   = errors.New("session closed")
)

type Role string

const (
	RoleInitiator Role = "initiator"
	RoleResponder Role = "responder"
)

type State int32

const (
	StateIdle State = iota
	StateNegotiating
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateNegotiating:
		return "NEGOTIATING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

type Options struct {
	ID       string
	Role     Role
	Signaler transport.Signaler
	Peers    transport.PeerFactory
	Codec    *protocol.Codec

	// Handlers receive inbound envelopes by channel name; Fallback gets the rest.
	Handlers Handlers
	Fallback HandlerFunc

	ReconnectInterval time.Duration
	PollInterval      time.Duration
	RetryBackoff      time.Duration
	PulseInterval     time.Duration
	ReplyTimeout      time.Duration

	Logger *logrus.Logger
}

type Session struct {
	id       string
	role     Role
	signaler transport.Signaler
	peers    transport.PeerFactory
	codec    *protocol.Codec
	handlers Handlers
	fallback HandlerFunc

	reconnectInterval time.Duration
	pollInterval      time.Duration
	retryBackoff      time.Duration
	pulseInterval     time.Duration
	replyTimeout      time.Duration

	logger *logrus.Entry

	pending correlator

	mu    sync.Mutex
	state State
	gen   *generation

	reconnectCh chan struct{}
	closed      chan struct{}
	closeOnce   sync.Once
	running     sync.Mutex
}

// generation is everything tied to one negotiated peer connection.
type generation struct {
	id        string
	ctx       context.Context
	cancel    context.CancelFunc
	peer      transport.Peer
	registry  *registry
	pulseOnce sync.Once
	log       *logrus.Entry

	inboxMu sync.Mutex
	inboxes map[string]chan Message
}

func New(opts Options) (*Session, error) {
	if opts.ID == "" {
		return nil, errors.New("session id is required")
	}
	if opts.Role != RoleInitiator && opts.Role != RoleResponder {
		return nil, errors.New("session role must be initiator or responder")
	}
	if opts.Signaler == nil {
		return nil, errors.New("signaler is required")
	}
	if opts.Peers == nil {
		return nil, errors.New("peer factory is required")
	}

	codec := opts.Codec
	if codec == nil {
		codec = protocol.NewCodec(protocol.FormatJSON)
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	handlers := opts.Handlers
	if handlers == nil {
		handlers = Handlers{}
	}

	return &Session{
		id:                opts.ID,
		role:              opts.Role,
		signaler:          opts.Signaler,
		peers:             opts.Peers,
		codec:             codec,
		handlers:          handlers,
		fallback:          opts.Fallback,
		reconnectInterval: orDefault(opts.ReconnectInterval, DefaultReconnectInterval),
		pollInterval:      orDefault(opts.PollInterval, DefaultPollInterval),
		retryBackoff:      orDefault(opts.RetryBackoff, DefaultRetryBackoff),
		pulseInterval:     orDefault(opts.PulseInterval, DefaultPulseInterval),
		replyTimeout:      orDefault(opts.ReplyTimeout, DefaultReplyTimeout),
		logger:            log.WithFields(logrus.Fields{"session": opts.ID, "role": opts.Role}),
		state:             StateIdle,
		reconnectCh:       make(chan struct{}, 1),
		closed:            make(chan struct{}),
	}, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Role() Role {
	return s.role
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	prev := s.state
	if prev == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()

	if prev != state {
		s.logger.WithField("state", state).Infof("Session state %s -> %s", prev, state)
	}
}

// Ready reports whether the named channel of the current connection is open.
func (s *Session) Ready(channel string) bool {
	gen := s.current()
	if gen == nil {
		return false
	}
	return gen.registry.ready(channel)
}

// Channels reports every channel of the current connection and whether it is open.
func (s *Session) Channels() map[string]bool {
	gen := s.current()
	if gen == nil {
		return map[string]bool{}
	}
	return gen.registry.snapshot()
}

func (s *Session) current() *generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Run negotiates and keeps the session connected, renegotiating every
// reconnect interval, until ctx is done or Close is called.
func (s *Session) Run(ctx context.Context) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	if !s.running.TryLock() {
		return errors.New("session is already running")
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.closed:
			cancel()
		case <-ctx.Done():
		}
	}()
	defer s.shutdown()

	reconnect := time.NewTicker(s.reconnectInterval)
	defer reconnect.Stop()

	for {
		if err := s.connect(ctx); err != nil {
			return s.exitErr(ctx)
		}
		reconnect.Reset(s.reconnectInterval)

		select {
		case <-ctx.Done():
			return s.exitErr(ctx)
		case <-reconnect.C:
			s.logger.Info("Scheduled renegotiation")
		case <-s.reconnectCh:
			s.logger.Info("Renegotiation requested")
		}

		s.setState(StateReconnecting)
		s.dropGeneration()
	}
}

func (s *Session) exitErr(ctx context.Context) error {
	select {
	case <-s.closed:
		return nil
	default:
		return ctx.Err()
	}
}

// connect retries negotiation from the top until it succeeds or ctx ends.
func (s *Session) connect(ctx context.Context) error {
	for {
		err := s.negotiate(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			s.dropGeneration()
			return ctx.Err()
		}

		s.logger.Warnf("Negotiation failed, retrying in %s: %v", s.retryBackoff, err)
		s.dropGeneration()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryBackoff):
		}
	}
}

// Reconnect asks a running session to renegotiate now.
func (s *Session) Reconnect() {
	select {
	case s.reconnectCh <- struct{}{}:
	default:
	}
}

// Close releases the peer connection and stops every background loop. It is
// safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.shutdown()
	})
	return nil
}

func (s *Session) shutdown() {
	s.dropGeneration()

	s.mu.Lock()
	prev := s.state
	s.state = StateClosed
	s.mu.Unlock()

	if prev != StateClosed {
		s.logger.WithField("state", StateClosed).Infof("Session state %s -> %s", prev, StateClosed)
	}
}

func (s *Session) newGeneration(ctx context.Context) *generation {
	genCtx, cancel := context.WithCancel(ctx)
	id := uuid.New().String()
	return &generation{
		id:       id,
		ctx:      genCtx,
		cancel:   cancel,
		registry: newRegistry(),
		log:      s.logger.WithField("generation", id[:8]),
		inboxes:  make(map[string]chan Message),
	}
}

func (s *Session) install(gen *generation) {
	s.mu.Lock()
	s.gen = gen
	s.mu.Unlock()
}

// attach records peer on gen. If gen was dropped while the peer was being
// built, the peer is closed here since nothing else holds it.
func (s *Session) attach(gen *generation, peer transport.Peer) error {
	s.mu.Lock()
	if s.gen == gen && gen.ctx.Err() == nil {
		gen.peer = peer
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := peer.Close(); err != nil {
		gen.log.Warnf("Failed to close peer connection: %v", err)
	}
	gen.log.Debug("Connection dropped while negotiating, peer released")
	if err := gen.ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}

// dropGeneration stops the pulse, empties the registry and closes the peer
// connection before forgetting it.
func (s *Session) dropGeneration() {
	s.mu.Lock()
	gen := s.gen
	s.gen = nil
	var peer transport.Peer
	if gen != nil {
		peer = gen.peer
	}
	s.mu.Unlock()

	if gen == nil {
		return
	}

	gen.cancel()
	gen.registry.reset()
	if peer != nil {
		if err := peer.Close(); err != nil {
			gen.log.Warnf("Failed to close peer connection: %v", err)
		}
	}
	gen.log.Debug("Peer connection released")
}
