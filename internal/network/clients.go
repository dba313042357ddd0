package network

import (
	"sync"

	"github.com/google/uuid"
)

// ClientManager tracks every connected client by session id. Safe for
// use from connection goroutines and the router loop.
type ClientManager struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[uuid.UUID]*Client),
	}
}

func (cm *ClientManager) Register(c *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.clients[c.ID()] = c
}

func (cm *ClientManager) Unregister(id uuid.UUID) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.clients, id)
}

// Get returns the client with the given id, or nil.
func (cm *ClientManager) Get(id uuid.UUID) *Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.clients[id]
}

func (cm *ClientManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// ForEach calls fn for every client until it returns false.
func (cm *ClientManager) ForEach(fn func(*Client) bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, c := range cm.clients {
		if !fn(c) {
			return
		}
	}
}
