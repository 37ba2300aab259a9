package store

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"whiteboard-sync-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type projectStore struct {
	client *kivik.Client
	dbName string
}

func NewProjectStore(client *kivik.Client, dbName string) ProjectStore {
	return &projectStore{
		client: client,
		dbName: dbName,
	}
}

// projectDoc is the stored shape: the domain project plus the CouchDB
// revision guarding the read-check-write cycle.
type projectDoc struct {
	domain.Project
	Rev string `json:"_rev,omitempty"`
}

func projectDocID(id string) string {
	return fmt.Sprintf("project:%s", id)
}

func (s *projectStore) FetchByID(ctx context.Context, id string) (domain.Project, error) {
	db := s.client.DB(s.dbName)

	var doc projectDoc
	row := db.Get(ctx, projectDocID(id))
	if err := row.ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return domain.Project{}, ErrNotFound
		}
		return domain.Project{}, fmt.Errorf("failed to fetch project %s: %w", id, err)
	}

	return doc.Project, nil
}

func (s *projectStore) FetchByOwner(ctx context.Context, ownerID string) ([]domain.Project, error) {
	db := s.client.DB(s.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"owner":   ownerID,
			"name":    map[string]interface{}{"$exists": true},
			"variant": map[string]interface{}{"$exists": false},
		},
	}

	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var doc projectDoc
		if err := rows.ScanDoc(&doc); err != nil {
			continue
		}
		projects = append(projects, doc.Project)
	}

	return projects, nil
}

// TransactionalWrite reads the stored record, aborts with ErrVersionMismatch
// when the stored version differs from the caller's, and otherwise writes the
// project with version remoteVersion+1. Absence counts as remote version 0.
// A lost _rev race against a concurrent writer is a version mismatch too:
// exactly one of the racing writers wins.
func (s *projectStore) TransactionalWrite(ctx context.Context, project domain.Project, ownerID string) (WriteResult, error) {
	db := s.client.DB(s.dbName)
	docID := projectDocID(project.ID)

	var stored projectDoc
	remoteVersion := int64(0)
	rev := ""
	exists := true
	row := db.Get(ctx, docID)
	if err := row.ScanDoc(&stored); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			exists = false
		} else {
			return WriteResult{}, fmt.Errorf("failed to read project %s before write: %w", project.ID, err)
		}
	} else {
		remoteVersion = stored.Version
		rev = stored.Rev
	}

	if exists && remoteVersion != project.Version {
		return WriteResult{}, ErrVersionMismatch
	}

	writtenAt := time.Now()
	doc := projectDoc{Project: project, Rev: rev}
	doc.Owner = ownerID
	doc.Version = remoteVersion + 1
	doc.UpdatedAt = writtenAt

	if _, err := db.Put(ctx, docID, doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusConflict {
			return WriteResult{}, ErrVersionMismatch
		}
		return WriteResult{}, fmt.Errorf("failed to write project %s: %w", project.ID, err)
	}

	return WriteResult{NewVersion: doc.Version, WrittenAt: writtenAt}, nil
}

func (s *projectStore) DeleteByID(ctx context.Context, id string) error {
	db := s.client.DB(s.dbName)
	docID := projectDocID(id)

	var doc projectDoc
	row := db.Get(ctx, docID)
	if err := row.ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read project %s for delete: %w", id, err)
	}

	if _, err := db.Delete(ctx, docID, doc.Rev); err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}

	return nil
}
