package wsserver

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/nettable"
	"go.viam.com/sysid/utils"
)

// A Client is a remote view of a served store, as used by data logging tools.
type Client struct {
	conn    *websocket.Conn
	logger  logging.Logger
	updates chan nettable.Update
	workers utils.StoppableWorkers

	writeMu sync.Mutex
}

// Dial connects to a Server at url, e.g. ws://localhost:5810/nt.
func Dial(ctx context.Context, url string, logger logging.Logger) (*Client, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot dial %s", url)
	}
	if resp != nil && resp.Body != nil {
		if err := resp.Body.Close(); err != nil {
			logger.Debugw("error closing handshake body", "error", err)
		}
	}
	c := &Client{
		conn:    conn,
		logger:  logger,
		updates: make(chan nettable.Update, nettable.DefaultSubscriberBuffer),
	}
	c.workers = utils.NewStoppableWorkers(c.readLoop)
	return c, nil
}

func (c *Client) readLoop(ctx context.Context) {
	defer close(c.updates)
	for {
		var msg nettable.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Debugw("websocket read ended", "error", err)
			}
			return
		}
		key, v, err := msg.Decode()
		if err != nil {
			c.logger.Warnw("ignoring malformed update", "error", err)
			continue
		}
		select {
		case c.updates <- nettable.Update{Key: key, Value: v, Seq: msg.Seq}:
		case <-ctx.Done():
			return
		}
	}
}

// Updates returns every update received, starting with the server's snapshot. It is closed
// when the connection ends.
func (c *Client) Updates() <-chan nettable.Update {
	return c.updates
}

// Set writes an entry on the server.
func (c *Client) Set(key string, v nettable.Value) error {
	msg, err := nettable.MessageFromUpdate(nettable.Update{Key: key, Value: v})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

// Close disconnects from the server.
func (c *Client) Close() error {
	c.writeMu.Lock()
	closeErr := c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	err := c.conn.Close()
	c.workers.Stop()
	if errors.Is(closeErr, websocket.ErrCloseSent) {
		closeErr = nil
	}
	if closeErr != nil {
		return closeErr
	}
	return err
}
