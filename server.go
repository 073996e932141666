package mqtt

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-io/mqtt/internal/config"
	"github.com/golang-io/mqtt/internal/metrics"
	"github.com/golang-io/mqtt/topic"
)

// shutdownPollIntervalMax is the max polling interval when checking
// quiescence during Server.Shutdown. Polling starts with a small
// interval and backs off to the max.
// Ideally we could find a solution that doesn't involve polling,
// but which also doesn't have a high runtime cost (and doesn't
// involve any contentious mutexes), but that is left as an
// exercise for the reader.
const shutdownPollIntervalMax = 500 * time.Millisecond
const size = 64 << 10

const (
	// StateNew represents a new connection that hasn't completed its
	// CONNECT handshake yet. Connections begin at this state and then
	// transition to either StateActive or StateClosed.
	StateNew ConnState = iota

	// StateActive represents a connection that has completed CONNECT
	// and is in Established, exchanging PUBLISH/SUBSCRIBE traffic.
	StateActive

	// StateIdle represents a connection waiting on its next packet.
	StateIdle

	// StateClosed is a terminal state: connection torn down.
	StateClosed
)

// ErrAbortHandler is a sentinel panic value: conn.serve's recover treats
// a panic carrying it as a deliberate abort and does not log it.
var ErrAbortHandler = errors.New("mqtt: abort Handler")

// ConnState is the state of a client connection, used by the optional
// Server.ConnState hook.
type ConnState int

// ErrServerClosed is returned by Serve and ListenAndServe after a call to
// Server.Shutdown.
var ErrServerClosed = errors.New("mqtt: Server closed")

// Server holds everything a running broker needs: the listener registry,
// the client directory, the subscription index, and the dispatcher that
// routes PUBLISH and SUBSCRIBE traffic through the index.
type Server struct {
	// ConnState, when set, is called on every connection state change.
	ConnState func(net.Conn, ConnState)

	Cfg *config.Config

	inShutdown atomic.Bool

	mu            sync.RWMutex
	listeners     map[*net.Listener]struct{}
	activeConn    map[*conn]struct{}
	directory     map[string]*conn // clientId -> worker, per the listener/client manager
	onShutdown    []func()
	listenerGroup sync.WaitGroup

	topics     *topic.Tree
	dispatcher *Dispatcher
}

// NewServer builds a Server wired to cfg's dispatcher queue size and
// keep-alive policy, and arranges for ctx's cancellation to trigger
// Shutdown.
func NewServer(ctx context.Context, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = &config.Config{}
		cfg.Validate() // no-op defaults aren't set; callers should pass a loaded Config
	}
	s := &Server{
		Cfg:        cfg,
		activeConn: make(map[*conn]struct{}),
		listeners:  make(map[*net.Listener]struct{}),
		directory:  make(map[string]*conn),
		topics:     topic.NewTree(),
	}
	s.dispatcher = newDispatcher(s, cfg)
	go s.dispatcher.run(ctx)

	go func() {
		<-ctx.Done()
		if err := s.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("mqtt: shutdown: %v", err)
		}
	}()
	return s
}

// register inserts a successfully-connected worker into the client
// directory — the manager step described for CONNACK success.
func (s *Server) register(c *conn) {
	s.mu.Lock()
	s.directory[c.ID] = c
	s.mu.Unlock()
}

// unregister removes clientId from the directory and cleans up its
// subscription-index entries. Safe to call more than once.
func (s *Server) unregister(clientID string) {
	if clientID == "" {
		return
	}
	s.mu.Lock()
	delete(s.directory, clientID)
	s.mu.Unlock()
	s.topics.UnsubscribeAll(clientID)
	metrics.SubscriptionsActive.Set(float64(s.topics.Count()))
}

// maxPacketSize returns the configured per-connection receive cap, or 0
// (no cap) when unconfigured.
func (s *Server) maxPacketSize() uint32 {
	if s.Cfg == nil {
		return 0
	}
	return s.Cfg.MaxPacketSize
}

func (s *Server) lookup(clientID string) (*conn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.directory[clientID]
	return c, ok
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	s.mu.Lock()
	lnerr := s.closeListenersLocked()
	for _, f := range s.onShutdown {
		go f()
	}
	s.mu.Unlock()
	s.listenerGroup.Wait()

	pollIntervalBase := time.Millisecond
	nextPollInterval := func() time.Duration {
		interval := pollIntervalBase + time.Duration(rand.Intn(int(pollIntervalBase/10+1)))
		pollIntervalBase *= 2
		if pollIntervalBase > shutdownPollIntervalMax {
			pollIntervalBase = shutdownPollIntervalMax
		}
		return interval
	}

	timer := time.NewTimer(nextPollInterval())
	defer timer.Stop()
	for {
		if s.closeIdleConns() {
			return lnerr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(nextPollInterval())
		}
	}
}

// closeIdleConns closes all idle connections and reports whether the
// server is quiescent.
func (s *Server) closeIdleConns() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiescent := true
	for c := range s.activeConn {
		st, unixSec := c.getState()
		if st == StateNew && unixSec < time.Now().Unix()-5 {
			st = StateIdle
		}
		if st != StateIdle || unixSec == 0 {
			quiescent = false
			continue
		}
		_ = c.rwc.Close()
		delete(s.activeConn, c)
	}
	return quiescent
}

func (s *Server) closeListenersLocked() error {
	var err error
	for ln := range s.listeners {
		if cerr := (*ln).Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// newConn builds the per-connection worker state for rwc. The zero
// value of state (an atomic.Uint32) is connAwaitingConnect, so there is
// nothing to initialize there.
func (s *Server) newConn(rwc net.Conn) *conn {
	return &conn{
		server:    s,
		rwc:       rwc,
		out:       newOutQueue(),
		writeDone: make(chan struct{}),
	}
}

// Serve accepts incoming connections on l, spawning one worker goroutine
// per accepted connection. It always returns a non-nil error; after
// Shutdown that error is ErrServerClosed.
func (s *Server) Serve(l net.Listener) error {
	defer l.Close()

	if !s.trackListener(&l, true) {
		return ErrServerClosed
	}
	defer s.trackListener(&l, false)

	ctx := context.Background()
	for {
		rw, err := l.Accept()
		if err != nil {
			if s.shuttingDown() {
				return ErrServerClosed
			}
			return err
		}
		c := s.newConn(rw)
		c.setState(c.rwc, StateNew, true)
		go c.serve(ctx)
	}
}

func (s *Server) trackConn(c *conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		metrics.ActiveConnections.Inc()
		stat.ActiveConnections.Inc()
		s.activeConn[c] = struct{}{}
	} else {
		metrics.ActiveConnections.Dec()
		stat.ActiveConnections.Dec()
		delete(s.activeConn, c)
	}
}

func (s *Server) trackListener(ln *net.Listener, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.shuttingDown() {
			return false
		}
		s.listeners[ln] = struct{}{}
		s.listenerGroup.Add(1)
	} else {
		delete(s.listeners, ln)
		s.listenerGroup.Done()
	}
	return true
}

func (s *Server) shuttingDown() bool {
	return s.inShutdown.Load()
}

// ListenAndServe listens on the plaintext TCP address addr and serves
// incoming connections until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	if s.shuttingDown() {
		return ErrServerClosed
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("mqtt serve: %s", addr)
	return s.Serve(ln)
}
