package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	TypeEntityUpdate MessageType = "entity_update"
	TypeEntityDelete MessageType = "entity_delete"
	TypeConflict     MessageType = "conflict"
	TypePing         MessageType = "ping"
	TypePong         MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EntityUpdatePayload announces a committed write: other devices of the same
// owner should refetch the entity at or above the given version.
type EntityUpdatePayload struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type EntityDeletePayload struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// ConflictPayload announces that a save cycle stopped on a version mismatch
// and a resolution choice is pending.
type ConflictPayload struct {
	Kind          string `json:"kind"`
	ID            string `json:"id"`
	LocalVersion  int64  `json:"localVersion"`
	RemoteVersion int64  `json:"remoteVersion"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
