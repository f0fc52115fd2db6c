package socket

import (
	"encoding/json"
	"sync"

	"soundgrid/internal/grid/model"
	"soundgrid/pkg/logger"

	"github.com/gorilla/websocket"
)

// allGrids is the room of clients subscribed to every grid.
const allGrids = ""

// WSMessage is the frame sent to subscribers.
type WSMessage struct {
	Type    string          `json:"type"`
	GridID  string          `json:"grid_id"`
	UserID  string          `json:"user_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub fans grid change events out to websocket subscribers. Clients join the
// room of one grid id, or the allGrids room to see every change.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan model.GridEvent
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
}

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	GridID string
	Send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan model.GridEvent, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Notify queues event for delivery. It never blocks the caller: when the
// queue is full the event is dropped and logged.
func (h *Hub) Notify(event model.GridEvent) {
	select {
	case h.Broadcast <- event:
	default:
		logger.Sugar.Warnf("Broadcast queue full, dropping %s event for grid %s", event.Type, event.GridID)
	}
}

// Stop ends Run and closes every client connection.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// ClientCount reports how many clients are subscribed.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, room := range h.Rooms {
		n += len(room)
	}
	return n
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for gridID, room := range h.Rooms {
				for client := range room {
					close(client.Send)
					client.Conn.Close()
				}
				delete(h.Rooms, gridID)
			}
			h.mu.Unlock()
			return

		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.GridID] == nil {
				h.Rooms[client.GridID] = make(map[*Client]bool)
			}
			h.Rooms[client.GridID][client] = true
			h.mu.Unlock()
			logger.Sugar.Debugf("Client subscribed to grid feed %q", client.GridID)

		case client := <-h.Unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.Broadcast:
			msg, err := toMessage(event)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}

			// Collect recipients under the lock, send outside it.
			h.mu.Lock()
			recipients := make([]*Client, 0, len(h.Rooms[allGrids])+len(h.Rooms[event.GridID]))
			for client := range h.Rooms[allGrids] {
				recipients = append(recipients, client)
			}
			if event.GridID != allGrids {
				for client := range h.Rooms[event.GridID] {
					recipients = append(recipients, client)
				}
			}
			h.mu.Unlock()

			for _, client := range recipients {
				select {
				case client.Send <- msg:
				default:
					// Lagging client; drop it rather than block the hub.
					logger.Sugar.Warnf("Client on grid feed %q has a full send buffer. Unregistering.", client.GridID)
					h.mu.Lock()
					h.remove(client)
					h.mu.Unlock()
				}
			}

			// A deleted grid has no more updates to deliver.
			if event.Type == model.GridDeleted {
				h.closeRoom(event.GridID)
			}
		}
	}
}

// remove drops client from its room and closes its send channel. Caller holds h.mu.
func (h *Hub) remove(client *Client) {
	room, ok := h.Rooms[client.GridID]
	if !ok || !room[client] {
		return
	}
	delete(room, client)
	close(client.Send)
	if len(room) == 0 {
		delete(h.Rooms, client.GridID)
	}
}

// closeRoom unsubscribes every client of a single grid. Closing Send lets
// writePump flush what is queued before it sends the close frame.
func (h *Hub) closeRoom(gridID string) {
	if gridID == allGrids {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.Rooms[gridID] {
		h.remove(client)
	}
}

func toMessage(event model.GridEvent) ([]byte, error) {
	var payload json.RawMessage
	if event.Grid != nil {
		b, err := json.Marshal(event.Grid)
		if err != nil {
			return nil, err
		}
		payload = b
	}
	return json.Marshal(WSMessage{Type: event.Type, GridID: event.GridID, UserID: event.UserID, Payload: payload})
}
