package net

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"tyr/internal/common"
	"tyr/internal/engine"
	"tyr/internal/events"
	"tyr/internal/metrics"
	"tyr/internal/utils"
)

const (
	defaultNWorkers    = 64
	defaultIdleTimeout = 5 * time.Minute
)

var ErrImproperConversion = errors.New("improper type conversion")

// Server accepts TCP clients and runs one session worker per connection.
// Each session reads framed commands and executes them to completion through
// the engine, in order; the worker pool bounds how many sessions are active
// at once. Events a session's commands produce are written back on its
// connection and teed to the process-wide sinks.
type Server struct {
	address string
	port    int
	engine  *engine.Engine
	tap     common.EventSink

	pool         utils.WorkerPool
	cancel       context.CancelFunc
	sessions     map[string]*session
	sessionsLock sync.Mutex
}

func New(address string, port int, eng *engine.Engine, tap common.EventSink, workers uint) *Server {
	if workers == 0 {
		workers = defaultNWorkers
	}
	return &Server{
		address:  address,
		port:     port,
		engine:   eng,
		tap:      tap,
		pool:     utils.NewWorkerPool(workers),
		sessions: make(map[string]*session),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()

	// Unblock any session stuck in a read.
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	for _, sess := range s.sessions {
		_ = sess.conn.Close()
	}
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	// Accept blocks, so the listener is torn down the moment the context
	// ends, which bounces the loop out.
	t.Go(func() error {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
		return nil
	})

	s.pool.Setup(t, s.runSession)

	log.Info().Str("address", listener.Addr().String()).Msg("server running")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("error accepting client")
			continue
		}

		sess := s.addSession(conn)
		log.Info().
			Str("session", sess.id).
			Str("remote", conn.RemoteAddr().String()).
			Msg("new client connected")

		s.pool.AddTask(sess)
	}
}

// runSession is the worker entry: it owns one connection for its whole
// lifetime and processes its commands serially. Errors on a session end that
// session only; nothing a single client does is fatal to the pool.
func (s *Server) runSession(t *tomb.Tomb, task any) error {
	sess, ok := task.(*session)
	if !ok {
		return ErrImproperConversion
	}
	defer s.removeSession(sess)

	sink := events.MultiSink{sess, s.tap}
	header := make([]byte, BaseMessageHeaderLen)
	body := make([]byte, NewOrderBodyLen)

	for {
		select {
		case <-t.Dying():
			return nil
		default:
		}

		if err := sess.conn.SetReadDeadline(time.Now().Add(defaultIdleTimeout)); err != nil {
			sess.log.Error().Err(err).Msg("failed setting read deadline")
			return nil
		}

		if _, err := io.ReadFull(sess.conn, header); err != nil {
			if !errors.Is(err, io.EOF) {
				sess.log.Error().Err(err).Msg("error reading from connection")
			}
			return nil
		}

		typeOf := MessageType(binary.BigEndian.Uint16(header))
		n, err := bodyLen(typeOf)
		if err != nil {
			sess.log.Error().Err(err).Uint16("type", uint16(typeOf)).Msg("rejecting message")
			return nil
		}
		if _, err := io.ReadFull(sess.conn, body[:n]); err != nil {
			sess.log.Error().Err(err).Msg("error reading message body")
			return nil
		}

		cmd, ok, err := parseCommand(typeOf, body[:n])
		if err != nil {
			sess.log.Error().Err(err).Msg("error parsing message")
			return nil
		}
		if !ok {
			continue // heartbeat
		}

		if err := s.engine.Process(cmd, sink); err != nil {
			sess.log.Error().Err(err).Str("command", cmd.Type.String()).Msg("command rejected")
			return nil
		}
	}
}

// --- Session bookkeeping ----------------------------------------------------

func (s *Server) addSession(conn net.Conn) *session {
	id := uuid.New().String()
	sess := &session{
		id:   id,
		conn: conn,
		log:  log.With().Str("session", id).Logger(),
	}

	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[sess.id] = sess
	metrics.ActiveSessions.Inc()
	return sess
}

func (s *Server) removeSession(sess *session) {
	if err := sess.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Error().Str("session", sess.id).Err(err).Msg("unable to close connection")
	}

	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	if _, ok := s.sessions[sess.id]; ok {
		delete(s.sessions, sess.id)
		metrics.ActiveSessions.Dec()
		log.Info().Str("session", sess.id).Msg("client disconnected")
	}
}
