package websocket

import (
	"time"

	"whiteboard-sync-server/internal/domain"
	"whiteboard-sync-server/internal/logger"
)

// Notifier adapts the manager to the save engine's broadcast hooks. Events
// go to every device of the owner; the originating device filters by entity
// version on its side, so no device exclusion is applied here.
type Notifier struct {
	manager *Manager
}

func NewNotifier(manager *Manager) *Notifier {
	return &Notifier{manager: manager}
}

func (n *Notifier) EntityCommitted(ownerID string, kind domain.EntityKind, id string, version int64, updatedAt time.Time) {
	msg, err := NewMessage(TypeEntityUpdate, EntityUpdatePayload{
		Kind:      string(kind),
		ID:        id,
		Version:   version,
		UpdatedAt: updatedAt,
	})
	if err != nil {
		logger.Error("failed to build entity update message", err)
		return
	}
	n.manager.BroadcastToOwner(ownerID, msg, "")
}

func (n *Notifier) EntityDeleted(ownerID string, kind domain.EntityKind, id string) {
	msg, err := NewMessage(TypeEntityDelete, EntityDeletePayload{
		Kind: string(kind),
		ID:   id,
	})
	if err != nil {
		logger.Error("failed to build entity delete message", err)
		return
	}
	n.manager.BroadcastToOwner(ownerID, msg, "")
}

func (n *Notifier) ConflictDetected(ownerID string, c *domain.Conflict) {
	payload := ConflictPayload{
		Kind: string(c.Kind),
		ID:   c.ID,
	}
	switch c.Kind {
	case domain.KindProject:
		if c.LocalProject != nil {
			payload.LocalVersion = c.LocalProject.Version
		}
		if c.RemoteProject != nil {
			payload.RemoteVersion = c.RemoteProject.Version
		}
	case domain.KindPage:
		if c.LocalPage != nil {
			payload.LocalVersion = c.LocalPage.Version
		}
		if c.RemotePage != nil {
			payload.RemoteVersion = c.RemotePage.Version
		}
	}

	msg, err := NewMessage(TypeConflict, payload)
	if err != nil {
		logger.Error("failed to build conflict message", err)
		return
	}
	n.manager.BroadcastToOwner(ownerID, msg, "")
}
