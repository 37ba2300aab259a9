package domain

// DocumentSet is the full local document state a client edits: the
// collections plus the active selections. It is the unit serialized to the
// guest fallback cache and returned to UI layers.
type DocumentSet struct {
	Projects        []Project `json:"projects"`
	Pages           []Page    `json:"pages"`
	ActiveProjectID string    `json:"activeProjectId"`
	ActivePageID    string    `json:"activePageId"`
}

const DefaultProjectName = "Project A"

// DefaultDocumentSet seeds a single empty project, matching what a fresh
// client sees before any sync.
func DefaultDocumentSet(owner string) DocumentSet {
	project := NewProject(DefaultProjectName, owner)
	return DocumentSet{
		Projects:        []Project{project},
		Pages:           []Page{},
		ActiveProjectID: project.ID,
	}
}

type SetActiveRequest struct {
	ActiveProjectID string `json:"activeProjectId" validate:"required"`
	ActivePageID    string `json:"activePageId"`
}
