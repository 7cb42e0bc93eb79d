// Package stream fans world snapshots out to websocket observers and relays
// their commands back to the world.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lao-tseu-is-alive/go-swarm-flock/internal/world"
	"github.com/lao-tseu-is-alive/go-swarm-flock/pkg/geometry"
	golog "github.com/tochemey/goakt/v3/log"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const writeWait = 2 * time.Second

// ErrUnknownCommand is returned by Commands for a key it does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Forward delivers a world message, typically with actor.Tell.
type Forward func(msg proto.Message) error

type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	last     *structpb.Struct
	payload  []byte

	forward Forward
	logger  golog.Logger
}

func NewHub(forward Forward, logger golog.Logger) *Hub {
	if logger == nil {
		logger = golog.DiscardLogger
	}
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		forward: forward,
		logger:  logger,
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
	// late joiners get the latest frame right away
	if h.payload != nil {
		h.write(conn, h.payload)
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

// write must be called with h.mu held.
func (h *Hub) write(conn *websocket.Conn, payload []byte) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		h.logger.Warnf("dropping observer %s: %v", conn.RemoteAddr(), err)
		conn.Close()
		delete(h.clients, conn)
	}
}

// Len returns the number of connected observers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends st, marshalled as protobuf, to every observer.
func (h *Hub) Broadcast(st *structpb.Struct) error {
	payload, err := proto.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last, h.payload = st, payload
	for conn := range h.clients {
		h.write(conn, payload)
	}
	return nil
}

// Pump encodes and broadcasts every snapshot from ch until ctx is done or ch
// is closed.
func Pump[V geometry.Vector[V]](ctx context.Context, h *Hub, ch <-chan *world.Snapshot[V]) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-ch:
			if !ok {
				return nil
			}
			st, err := world.EncodeSnapshot(snap)
			if err != nil {
				return err
			}
			if err := h.Broadcast(st); err != nil {
				return err
			}
		}
	}
}

// Commands turns an observer request into world messages. Recognised keys:
// "feed" with a coordinate list, "tune" with a parameter object and "cells"
// with a boolean.
func Commands(st *structpb.Struct) ([]proto.Message, error) {
	var out []proto.Message
	for key, v := range st.GetFields() {
		switch key {
		case "feed":
			list := v.GetListValue()
			if list == nil {
				return nil, fmt.Errorf("feed: want a coordinate list")
			}
			out = append(out, list)
		case "tune":
			params := v.GetStructValue()
			if params == nil {
				return nil, fmt.Errorf("tune: want an object")
			}
			out = append(out, params)
		case "cells":
			b, ok := v.GetKind().(*structpb.Value_BoolValue)
			if !ok {
				return nil, fmt.Errorf("cells: want a boolean")
			}
			out = append(out, world.ShowCells(b.BoolValue))
		default:
			return nil, fmt.Errorf("%w %q", ErrUnknownCommand, key)
		}
	}
	return out, nil
}

// Handler upgrades to a websocket, then reads protobuf Structs and forwards
// the commands they carry.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warnf("websocket upgrade failed: %v", err)
			return
		}
		h.add(conn)
		defer h.remove(conn)
		h.logger.Infof("observer %s connected", conn.RemoteAddr())

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				h.logger.Debugf("observer %s gone: %v", conn.RemoteAddr(), err)
				return
			}

			var req structpb.Struct
			if err := proto.Unmarshal(data, &req); err != nil {
				h.logger.Warnf("unable to decode observer command: %v", err)
				continue
			}
			msgs, err := Commands(&req)
			if err != nil {
				h.logger.Warnf("observer command rejected: %v", err)
				continue
			}
			for _, msg := range msgs {
				if h.forward == nil {
					break
				}
				if err := h.forward(msg); err != nil {
					h.logger.Errorf("forwarding %T: %v", msg, err)
				}
			}
		}
	}
}

// SnapshotHandler serves the latest snapshot as JSON.
func (h *Hub) SnapshotHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		last := h.last
		h.mu.Unlock()
		if last == nil {
			http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
			return
		}
		b, err := protojson.Marshal(last)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	}
}
