package domain

type EntityKind string

const (
	KindProject EntityKind = "project"
	KindPage    EntityKind = "page"
)

type Resolution string

const (
	ResolutionTakeLocal  Resolution = "take-local"
	ResolutionTakeRemote Resolution = "take-remote"
	ResolutionMerge      Resolution = "merge"
)

// Conflict holds the two sides of a version mismatch detected during a save
// cycle. Exactly one of the project or page pairs is set, matching Kind.
type Conflict struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`

	LocalProject  *Project `json:"localProject,omitempty"`
	RemoteProject *Project `json:"remoteProject,omitempty"`
	LocalPage     *Page    `json:"localPage,omitempty"`
	RemotePage    *Page    `json:"remotePage,omitempty"`
}

func NewProjectConflict(local, remote Project) *Conflict {
	return &Conflict{
		Kind:          KindProject,
		ID:            local.ID,
		LocalProject:  &local,
		RemoteProject: &remote,
	}
}

func NewPageConflict(local, remote Page) *Conflict {
	return &Conflict{
		Kind:       KindPage,
		ID:         local.ID,
		LocalPage:  &local,
		RemotePage: &remote,
	}
}

type ResolveConflictRequest struct {
	Choice Resolution `json:"choice" validate:"required,oneof=take-local take-remote merge"`
}
