package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project groups pages. Version is the optimistic-concurrency counter owned
// by the remote store once the project has been persisted.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner,omitempty"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewProject(name, owner string) Project {
	return Project{
		ID:        uuid.New().String(),
		Name:      name,
		Owner:     owner,
		Version:   0,
		UpdatedAt: time.Now(),
	}
}

func (p Project) EntityID() string { return p.ID }

type CreateProjectRequest struct {
	Name string `json:"name" validate:"required"`
}

type RenameProjectRequest struct {
	Name string `json:"name" validate:"required"`
}
