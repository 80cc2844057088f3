// Package ws pushes new whispers and replies to connected listeners.
// Clients are read-only; the only inbound traffic is control frames.
package ws

// Hub fans broadcast messages out to all registered clients.
type Hub struct {
	// Broadcast accepts pre-marshalled JSON messages for all clients.
	Broadcast chan []byte

	register   chan *Client
	unregister chan *Client
	clients    map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run owns the client set. Start it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer, drop it rather than block the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}
