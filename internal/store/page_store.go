package store

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"whiteboard-sync-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type pageStore struct {
	client *kivik.Client
	dbName string
}

func NewPageStore(client *kivik.Client, dbName string) PageStore {
	return &pageStore{
		client: client,
		dbName: dbName,
	}
}

type pageDoc struct {
	domain.Page
	Rev string `json:"_rev,omitempty"`
}

func pageDocID(id string) string {
	return fmt.Sprintf("page:%s", id)
}

func (s *pageStore) FetchByID(ctx context.Context, id string) (domain.Page, error) {
	db := s.client.DB(s.dbName)

	var doc pageDoc
	row := db.Get(ctx, pageDocID(id))
	if err := row.ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return domain.Page{}, ErrNotFound
		}
		return domain.Page{}, fmt.Errorf("failed to fetch page %s: %w", id, err)
	}

	return doc.Page, nil
}

func (s *pageStore) FetchByOwner(ctx context.Context, ownerID string) ([]domain.Page, error) {
	db := s.client.DB(s.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"owner":   ownerID,
			"variant": map[string]interface{}{"$exists": true},
		},
	}

	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		var doc pageDoc
		if err := rows.ScanDoc(&doc); err != nil {
			continue
		}
		pages = append(pages, doc.Page)
	}

	return pages, nil
}

// TransactionalWrite applies the same compare-and-swap contract as the
// project store, keyed on the page's version counter.
func (s *pageStore) TransactionalWrite(ctx context.Context, page domain.Page, ownerID string) (WriteResult, error) {
	db := s.client.DB(s.dbName)
	docID := pageDocID(page.ID)

	var stored pageDoc
	remoteVersion := int64(0)
	rev := ""
	exists := true
	row := db.Get(ctx, docID)
	if err := row.ScanDoc(&stored); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			exists = false
		} else {
			return WriteResult{}, fmt.Errorf("failed to read page %s before write: %w", page.ID, err)
		}
	} else {
		remoteVersion = stored.Version
		rev = stored.Rev
	}

	if exists && remoteVersion != page.Version {
		return WriteResult{}, ErrVersionMismatch
	}

	writtenAt := time.Now()
	doc := pageDoc{Page: page, Rev: rev}
	doc.Owner = ownerID
	doc.Version = remoteVersion + 1
	doc.UpdatedAt = writtenAt

	if _, err := db.Put(ctx, docID, doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusConflict {
			return WriteResult{}, ErrVersionMismatch
		}
		return WriteResult{}, fmt.Errorf("failed to write page %s: %w", page.ID, err)
	}

	return WriteResult{NewVersion: doc.Version, WrittenAt: writtenAt}, nil
}

func (s *pageStore) DeleteByID(ctx context.Context, id string) error {
	db := s.client.DB(s.dbName)
	docID := pageDocID(id)

	var doc pageDoc
	row := db.Get(ctx, docID)
	if err := row.ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read page %s for delete: %w", id, err)
	}

	if _, err := db.Delete(ctx, docID, doc.Rev); err != nil {
		return fmt.Errorf("failed to delete page %s: %w", id, err)
	}

	return nil
}
