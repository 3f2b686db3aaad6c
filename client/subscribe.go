package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hanpama/typeddoc"
	"github.com/hanpama/typeddoc/internal/wsproto"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
)

const ackWait = 10 * time.Second

type nextPayload struct {
	Data       json.RawMessage `json:"data"`
	Errors     gqlerror.List   `json:"errors"`
	Extensions map[string]any  `json:"extensions"`
}

// Subscribe opens a graphql-transport-ws connection and streams typed
// results until the server completes the subscription or ctx is done. A
// server error frame is delivered as a final result carrying Errors.
func Subscribe[R, V any](ctx context.Context, c *Client, doc *typeddoc.Document[R, V], variables V, opts ...CallOption) (<-chan *QueryResult[R, V], error) {
	q, err := prepare(doc, variables, newCallConfig(opts))
	if err != nil {
		return nil, err
	}
	if q.doc.Kind() != typeddoc.Stream {
		return nil, fmt.Errorf("%w: %s %q", ErrNotStream, q.doc.Operation(), q.opName)
	}
	if c.wsEndpoint == "" {
		return nil, ErrNoEndpoint
	}

	conn, _, err := c.dialer.DialContext(ctx, c.wsEndpoint, c.wsHeader)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", c.wsEndpoint, err)
	}
	ws := &wsConn{conn: conn}
	if err := ws.handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	const id = "1"
	if err := ws.send(id, wsproto.Subscribe, wsproto.SubscribePayload{
		Query:         q.doc.Source(),
		OperationName: q.opName,
		Variables:     q.vars,
	}); err != nil {
		conn.Close()
		return nil, err
	}

	out := make(chan *QueryResult[R, V])
	go func() {
		defer close(out)
		defer conn.Close()
		stop := context.AfterFunc(ctx, func() {
			_ = ws.send(id, wsproto.Complete, nil)
			conn.Close()
		})
		defer stop()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure) {
					c.logger.Warn("subscription connection lost", zap.String("operation", q.opName), zap.Error(err))
				}
				return
			}
			m, err := wsproto.Decode(data)
			if err != nil {
				c.logger.Warn("malformed subscription frame", zap.Error(err))
				continue
			}
			var res *QueryResult[R, V]
			switch m.Type {
			case wsproto.Ping:
				_ = ws.send("", wsproto.Pong, nil)
				continue
			case wsproto.Next:
				var p nextPayload
				if err := wsproto.Unmarshal(m.Payload, &p); err != nil {
					c.logger.Warn("malformed next payload", zap.Error(err))
					continue
				}
				res = &QueryResult[R, V]{Errors: p.Errors, Extensions: p.Extensions, Variables: q.typed}
				if res.Data, err = typeddoc.DecodeResult[R](p.Data); err != nil {
					res.Errors = append(res.Errors, gqlerror.Wrap(err))
				}
			case wsproto.Error:
				var errs gqlerror.List
				_ = wsproto.Unmarshal(m.Payload, &errs)
				res = &QueryResult[R, V]{Errors: errs, Variables: q.typed}
			case wsproto.Complete:
				return
			default:
				continue
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
			if m.Type == wsproto.Error {
				return
			}
		}
	}()
	return out, nil
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) send(id, typ string, payload any) error {
	frame, err := wsproto.Encode(id, typ, payload)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, frame)
}

func (w *wsConn) handshake() error {
	if err := w.send("", wsproto.ConnectionInit, nil); err != nil {
		return fmt.Errorf("client: connection_init: %w", err)
	}
	w.conn.SetReadDeadline(time.Now().Add(ackWait))
	defer w.conn.SetReadDeadline(time.Time{})
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("client: waiting for connection_ack: %w", err)
		}
		m, err := wsproto.Decode(data)
		if err != nil {
			return fmt.Errorf("client: waiting for connection_ack: %w", err)
		}
		switch m.Type {
		case wsproto.ConnectionAck:
			return nil
		case wsproto.Ping:
			if err := w.send("", wsproto.Pong, nil); err != nil {
				return err
			}
		default:
			return fmt.Errorf("client: unexpected %q before connection_ack", m.Type)
		}
	}
}
