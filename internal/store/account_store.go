package store

import (
	"context"
	"fmt"
	"net/http"

	"whiteboard-sync-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

type accountStore struct {
	client *kivik.Client
	dbName string
}

func NewAccountStore(client *kivik.Client, dbName string) AccountStore {
	return &accountStore{
		client: client,
		dbName: dbName,
	}
}

func accountDocID(id string) string {
	return fmt.Sprintf("account:%s", id)
}

func (s *accountStore) Create(ctx context.Context, account *domain.Account) error {
	db := s.client.DB(s.dbName)

	if _, err := db.Put(ctx, accountDocID(account.ID), account); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

func (s *accountStore) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	db := s.client.DB(s.dbName)

	var account domain.Account
	row := db.Get(ctx, accountDocID(id))
	if err := row.ScanDoc(&account); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find account by id: %w", err)
	}

	return &account, nil
}

func (s *accountStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	db := s.client.DB(s.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"email": email,
		},
		"limit": 1,
	}

	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query account by email: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrNotFound
	}

	var account domain.Account
	if err := rows.ScanDoc(&account); err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	return &account, nil
}

func (s *accountStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.FindByEmail(ctx, email)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *accountStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	db := s.client.DB(s.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"username": username,
		},
		"limit": 1,
	}

	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("failed to query account by username: %w", err)
	}
	defer rows.Close()

	return rows.Next(), nil
}
