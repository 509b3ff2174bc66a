// Package wsserver exposes a nettable.Store to remote tools over websockets.
package wsserver

import (
	"context"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/nettable"
	"go.viam.com/sysid/utils"
)

const writeWait = time.Second

// Options configures a Server.
type Options struct {
	// UpdateInterval is how often queued updates are flushed to each client. It should equal the
	// robot's loop period.
	UpdateInterval time.Duration
	// SubscriberBuffer bounds the updates queued per client between flushes.
	SubscriberBuffer int
	Clock            clock.Clock
}

// Server streams every store write to each connected client and applies client writes to the
// store.
type Server struct {
	store    *nettable.Store
	opts     Options
	logger   logging.Logger
	upgrader websocket.Upgrader

	closeCtx  context.Context
	closeFunc context.CancelFunc
	clients   atomic.Int64
}

// New returns a server for the given store.
func New(store *nettable.Store, opts Options, logger logging.Logger) (*Server, error) {
	if opts.UpdateInterval <= 0 {
		return nil, errors.Errorf("update interval must be positive, got %s", opts.UpdateInterval)
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	closeCtx, closeFunc := context.WithCancel(context.Background())
	return &Server{
		store:  store,
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		closeCtx:  closeCtx,
		closeFunc: closeFunc,
	}, nil
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int64 {
	return s.clients.Load()
}

// Close disconnects every client.
func (s *Server) Close() error {
	s.closeFunc()
	return nil
}

// ServeHTTP upgrades the request and serves the client until either side goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debugw("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			s.logger.Debugw("error closing websocket", "error", err)
		}
	}()

	snapshot, updates, cancel, err := s.store.Subscribe(s.opts.SubscriberBuffer)
	if err != nil {
		s.logger.Warnw("cannot subscribe client", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer cancel()

	s.clients.Inc()
	defer s.clients.Dec()
	s.logger.Infow("client connected", "remote", r.RemoteAddr)
	defer s.logger.Infow("client disconnected", "remote", r.RemoteAddr)

	ctx, stop := context.WithCancel(s.closeCtx)
	defer stop()
	reader := utils.NewStoppableWorkersWithContext(ctx, func(ctx context.Context) {
		defer stop()
		s.readLoop(conn)
	})
	defer reader.Stop()
	// the reader is blocked on the connection until it is closed
	defer func() {
		goutils.UncheckedError(conn.Close())
	}()

	if err := s.write(conn, snapshot); err != nil {
		s.logger.Debugw("error writing snapshot", "error", err)
		return
	}

	ticker := s.opts.Clock.Ticker(s.opts.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			goutils.UncheckedError(conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait)))
			return
		case <-ticker.C:
		}
		batch, open := drain(updates)
		if err := s.write(conn, batch); err != nil {
			s.logger.Debugw("error writing updates", "error", err)
			return
		}
		if !open {
			return
		}
	}
}

// drain returns everything queued without blocking, and whether the channel is still open.
func drain(updates <-chan nettable.Update) ([]nettable.Update, bool) {
	var batch []nettable.Update
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return batch, false
			}
			batch = append(batch, u)
		default:
			return batch, true
		}
	}
}

// write sends each update as its own message.
func (s *Server) write(conn *websocket.Conn, batch []nettable.Update) error {
	for _, u := range batch {
		msg, err := nettable.MessageFromUpdate(u)
		if err != nil {
			return err
		}
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) readLoop(conn *websocket.Conn) {
	for {
		var msg nettable.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debugw("websocket read ended", "error", err)
			}
			return
		}
		if err := s.apply(msg); err != nil {
			s.logger.Warnw("ignoring client write", "key", msg.Key, "error", err)
		}
	}
}

func (s *Server) apply(msg nettable.Message) error {
	key, v, err := msg.Decode()
	if err != nil {
		return err
	}
	if nettable.IsReadOnly(key) {
		return errors.Errorf("%q is read only", key)
	}
	return s.store.Set(key, v)
}
