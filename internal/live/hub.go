package live

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/curvelab/curvelab/backend-go/internal/curvedoc"
)

// DocumentLoader fetches the latest stored document for a curve.
type DocumentLoader func(curveID string) (*curvedoc.Document, error)

// DocumentSaver persists a document produced by a live session.
type DocumentSaver func(curveID string, doc *curvedoc.Document) error

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // curveID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	load       DocumentLoader
	save       DocumentSaver
	quiescence time.Duration
}

func NewHub(load DocumentLoader, save DocumentSaver, quiescence time.Duration) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		load:       load,
		save:       save,
		quiescence: quiescence,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			h.closeAllRooms()
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Stop shuts down all rooms, persisting their state and joining each
// engine's background worker.
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.CurveID]
	if !ok {
		doc, err := h.load(client.CurveID)
		if err != nil {
			h.mu.Unlock()
			slog.Error("load document for session", "error", err, "curve", client.CurveID)
			client.Send(errorMessage("failed to load curve"))
			client.closeSend()
			return
		}

		room, err = newRoom(client.CurveID, doc, h.quiescence)
		if err != nil {
			h.mu.Unlock()
			slog.Error("open session", "error", err, "curve", client.CurveID)
			client.Send(errorMessage("failed to open curve"))
			client.closeSend()
			return
		}

		h.subscribeEngineEvents(room)
		h.rooms[client.CurveID] = room
	}
	room.clients[client.ClientID] = client
	state := room.stateMessage()
	h.mu.Unlock()

	welcome := &Message{Type: TypeWelcome, CurveID: client.CurveID, ClientID: client.ClientID}
	client.Send(welcome)
	if state != nil {
		client.Send(state)
	}

	slog.Info("client joined", "user", client.UserID, "curve", client.CurveID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.CurveID]
	if !ok {
		h.mu.Unlock()
		return
	}

	if _, present := room.clients[client.ClientID]; !present {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeSend()

	var toClose *Room
	if len(room.clients) == 0 {
		delete(h.rooms, client.CurveID)
		toClose = room
	}
	h.mu.Unlock()

	if toClose != nil {
		h.persistAndClose(toClose)
	}

	slog.Info("client left", "user", client.UserID, "curve", client.CurveID)
}

func (h *Hub) closeAllRooms() {
	h.mu.Lock()
	rooms := make([]*Room, 0, len(h.rooms))
	for id, room := range h.rooms {
		for _, c := range room.clients {
			c.closeSend()
		}
		rooms = append(rooms, room)
		delete(h.rooms, id)
	}
	h.mu.Unlock()

	for _, room := range rooms {
		h.persistAndClose(room)
	}
}

func (h *Hub) persistAndClose(room *Room) {
	doc := room.document()
	if err := h.save(room.curveID, doc); err != nil {
		slog.Error("persist session document", "error", err, "curve", room.curveID)
	}
	room.close()
}

// subscribeEngineEvents forwards the engine's bake and range callbacks
// to every client in the room. The bake callback fires on the engine's
// background worker goroutine.
func (h *Hub) subscribeEngineEvents(room *Room) {
	curveID := room.curveID
	c := room.curve

	c.OnBaked(func() {
		payload, _ := json.Marshal(EventBakedPayload{Resolution: c.BakeResolution()})
		h.broadcastToRoom(curveID, &Message{
			Type:    TypeEventBaked,
			CurveID: curveID,
			Payload: payload,
		}, "")
	})

	c.OnRangeChanged(func(min, max float64) {
		payload, _ := json.Marshal(EventRangePayload{Min: min, Max: max})
		h.broadcastToRoom(curveID, &Message{
			Type:    TypeEventRange,
			CurveID: curveID,
			Payload: payload,
		}, "")
	})
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var submit OpSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid operation payload", "error", err, "user", sender.UserID)
		return
	}
	op := submit.Operation

	h.mu.RLock()
	room, ok := h.rooms[sender.CurveID]
	h.mu.RUnlock()
	if !ok {
		sender.Send(errorMessage("no active session"))
		return
	}

	newIndex, err := room.apply(&op)
	if err != nil {
		payload, _ := json.Marshal(OpNackPayload{OperationID: op.ID, Reason: err.Error()})
		sender.Send(&Message{Type: TypeOpNack, CurveID: sender.CurveID, Payload: payload})
		return
	}

	ackPayload, _ := json.Marshal(OpAckPayload{OperationID: op.ID, NewIndex: newIndex})
	sender.Send(&Message{Type: TypeOpAck, CurveID: sender.CurveID, Payload: ackPayload})

	outPayload, _ := json.Marshal(OpBroadcastPayload{Operation: op, UserID: sender.UserID})
	h.broadcastToRoom(sender.CurveID, &Message{
		Type:    TypeOpBroadcast,
		CurveID: sender.CurveID,
		UserID:  sender.UserID,
		Payload: outPayload,
	}, sender.ClientID)
}

func (h *Hub) broadcastToRoom(curveID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[curveID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func errorMessage(reason string) *Message {
	payload, _ := json.Marshal(map[string]string{"error": reason})
	return &Message{Type: TypeError, Payload: payload}
}
