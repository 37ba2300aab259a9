package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"whiteboard-sync-server/internal/logger"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager tracks connections per owner so commit and conflict events reach
// every device of the owner except the one that caused them.
type Manager struct {
	clients         map[string]*Client
	ownerIndex      map[string]map[string]bool
	clientsMutex    sync.RWMutex
	Register        chan *Client
	Unregister      chan *Client
	HandleMessage   chan *ClientMessage
	maxConnPerOwner int
	writeWait       time.Duration
	pongWait        time.Duration
	pingPeriod      time.Duration
	messageHandler  MessageHandler
}

type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
}

func NewManager(maxConnPerOwner int, writeWait, pongWait, pingPeriod time.Duration) *Manager {
	return &Manager{
		clients:         make(map[string]*Client),
		ownerIndex:      make(map[string]map[string]bool),
		Register:        make(chan *Client),
		Unregister:      make(chan *Client),
		HandleMessage:   make(chan *ClientMessage),
		maxConnPerOwner: maxConnPerOwner,
		writeWait:       writeWait,
		pongWait:        pongWait,
		pingPeriod:      pingPeriod,
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.ownerIndex[client.OwnerID] == nil {
		m.ownerIndex[client.OwnerID] = make(map[string]bool)
	}

	if len(m.ownerIndex[client.OwnerID]) >= m.maxConnPerOwner {
		logger.Warn("max connections reached", map[string]interface{}{"owner": client.OwnerID})
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.ownerIndex[client.OwnerID][client.ID] = true

	logger.Debug("client registered", map[string]interface{}{
		"client": client.ID,
		"owner":  client.OwnerID,
		"device": client.DeviceID,
	})
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		delete(m.ownerIndex[client.OwnerID], client.ID)

		if len(m.ownerIndex[client.OwnerID]) == 0 {
			delete(m.ownerIndex, client.OwnerID)
		}

		close(client.Send)
		logger.Debug("client unregistered", map[string]interface{}{"client": client.ID})
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		logger.Error("failed to unmarshal websocket message", err)
		return
	}

	if msg.Type == TypePing {
		pong, err := NewMessage(TypePong, nil)
		if err == nil {
			m.SendToClient(clientMsg.Client.ID, pong)
		}
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(clientMsg.Client, &msg); err != nil {
			logger.Error("failed to handle websocket message", err,
				map[string]interface{}{"type": string(msg.Type)})
		}
	}
}

// BroadcastToOwner fans a message out to every connection of the owner,
// skipping the device that originated the change. A client with a full send
// buffer is dropped rather than blocking the broadcast.
func (m *Manager) BroadcastToOwner(ownerID string, message *Message, excludeDeviceID string) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	clientIDs, exists := m.ownerIndex[ownerID]
	if !exists {
		return nil
	}

	for clientID := range clientIDs {
		client := m.clients[clientID]
		if client.DeviceID != excludeDeviceID {
			select {
			case client.Send <- messageBytes:
			default:
				logger.Warn("client send buffer full, closing connection",
					map[string]interface{}{"client": clientID})
				m.Unregister <- client
			}
		}
	}

	return nil
}

func (m *Manager) SendToClient(clientID string, message *Message) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.Send <- messageBytes:
	default:
		logger.Warn("client send buffer full", map[string]interface{}{"client": clientID})
	}

	return nil
}

func (m *Manager) OwnerConnections(ownerID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	if clients, exists := m.ownerIndex[ownerID]; exists {
		return len(clients)
	}
	return 0
}
