package ratesapi

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/hanpama/typeddoc/internal/wsproto"
)

// SubscriptionHandler serves schema subscriptions over graphql-transport-ws.
type SubscriptionHandler struct {
	Schema   *graphql.Schema
	upgrader websocket.Upgrader
}

func NewSubscriptionHandler(s *graphql.Schema) *SubscriptionHandler {
	return &SubscriptionHandler{
		Schema: s,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{wsproto.Subprotocol},
			CheckOrigin:  func(*http.Request) bool { return true },
		},
	}
}

func (h *SubscriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var (
		wmu  sync.Mutex
		smu  sync.Mutex
		subs = map[string]context.CancelFunc{}
		wg   sync.WaitGroup
	)
	send := func(id, typ string, payload any) {
		frame, err := wsproto.Encode(id, typ, payload)
		if err != nil {
			return
		}
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.WriteMessage(websocket.TextMessage, frame)
	}
	defer wg.Wait()
	defer cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		m, err := wsproto.Decode(data)
		if err != nil {
			return
		}
		switch m.Type {
		case wsproto.ConnectionInit:
			send("", wsproto.ConnectionAck, nil)
		case wsproto.Ping:
			send("", wsproto.Pong, nil)
		case wsproto.Complete:
			smu.Lock()
			if stop, ok := subs[m.ID]; ok {
				stop()
				delete(subs, m.ID)
			}
			smu.Unlock()
		case wsproto.Subscribe:
			var p wsproto.SubscribePayload
			if err := wsproto.Unmarshal(m.Payload, &p); err != nil {
				send(m.ID, wsproto.Error, []map[string]string{{"message": err.Error()}})
				continue
			}
			subCtx, stop := context.WithCancel(ctx)
			events, err := h.Schema.Subscribe(subCtx, p.Query, p.OperationName, p.Variables)
			if err != nil {
				stop()
				send(m.ID, wsproto.Error, []map[string]string{{"message": err.Error()}})
				continue
			}
			smu.Lock()
			subs[m.ID] = stop
			smu.Unlock()
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				defer stop()
				for ev := range events {
					if subCtx.Err() != nil {
						continue
					}
					if resp, ok := ev.(*graphql.Response); ok {
						send(id, wsproto.Next, resp)
					}
				}
				if subCtx.Err() == nil {
					send(id, wsproto.Complete, nil)
				}
			}(m.ID)
		}
	}
}
