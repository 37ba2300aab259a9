package service

import (
	"context"
	"testing"
	"time"

	"whiteboard-sync-server/internal/domain"
	"whiteboard-sync-server/internal/store"
	"whiteboard-sync-server/pkg/hash"
	. "whiteboard-sync-server/pkg/jwt"
)

type mockAccountStore struct {
	accounts map[string]*domain.Account
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{
		accounts: make(map[string]*domain.Account),
	}
}

func (m *mockAccountStore) Create(_ context.Context, account *domain.Account) error {
	m.accounts[account.ID] = account
	return nil
}

func (m *mockAccountStore) FindByID(_ context.Context, id string) (*domain.Account, error) {
	if account, ok := m.accounts[id]; ok {
		return account, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockAccountStore) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, account := range m.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockAccountStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *mockAccountStore) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, account := range m.accounts {
		if account.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func TestAuthService_Register(t *testing.T) {
	accounts := newMockAccountStore()
	service := NewAuthService(accounts, "test-secret", 15*time.Minute, 7*24*time.Hour)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *domain.RegisterRequest
		wantErr bool
		setup   func()
	}{
		{
			name: "successful registration",
			req: &domain.RegisterRequest{
				Username: "newuser",
				Email:    "new@example.com",
				Key:      "AccountKey123!",
			},
			wantErr: false,
			setup:   func() {},
		},
		{
			name: "duplicate email",
			req: &domain.RegisterRequest{
				Username: "anotheruser",
				Email:    "existing@example.com",
				Key:      "AccountKey123!",
			},
			wantErr: true,
			setup: func() {
				hashedKey, _ := hash.Hash("ExistingKey123!")
				accounts.Create(ctx, &domain.Account{
					ID:       "existing-id",
					Username: "existinguser",
					Email:    "existing@example.com",
					Key:      hashedKey,
				})
			},
		},
		{
			name: "duplicate username",
			req: &domain.RegisterRequest{
				Username: "duplicateuser",
				Email:    "unique@example.com",
				Key:      "AccountKey123!",
			},
			wantErr: true,
			setup: func() {
				hashedKey, _ := hash.Hash("Key12345!")
				accounts.Create(ctx, &domain.Account{
					ID:       "dup-id",
					Username: "duplicateuser",
					Email:    "other@example.com",
					Key:      hashedKey,
				})
			},
		},
		{
			name: "weak key",
			req: &domain.RegisterRequest{
				Username: "testuser",
				Email:    "test@example.com",
				Key:      "weak",
			},
			wantErr: true,
			setup:   func() {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts.accounts = make(map[string]*domain.Account)
			tt.setup()

			err := service.Register(ctx, tt.req)

			if tt.wantErr {
				if err == nil {
					t.Error("Register() expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("Register() unexpected error = %v", err)
				}

				exists, _ := accounts.EmailExists(ctx, tt.req.Email)
				if !exists {
					t.Error("Register() account not created in store")
				}
			}
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	accounts := newMockAccountStore()
	service := NewAuthService(accounts, "test-secret-key", 15*time.Minute, 7*24*time.Hour)
	ctx := context.Background()

	key := "AccountKey123!"
	hashedKey, _ := hash.Hash(key)

	accounts.Create(ctx, &domain.Account{
		ID:       "test-account-id",
		Username: "testuser",
		Email:    "test@example.com",
		Key:      hashedKey,
	})

	tests := []struct {
		name    string
		req     *domain.LoginRequest
		wantErr bool
	}{
		{
			name: "successful login",
			req: &domain.LoginRequest{
				Email: "test@example.com",
				Key:   key,
			},
			wantErr: false,
		},
		{
			name: "wrong key",
			req: &domain.LoginRequest{
				Email: "test@example.com",
				Key:   "WrongKey",
			},
			wantErr: true,
		},
		{
			name: "non-existent email",
			req: &domain.LoginRequest{
				Email: "nonexistent@example.com",
				Key:   key,
			},
			wantErr: true,
		},
		{
			name: "empty key",
			req: &domain.LoginRequest{
				Email: "test@example.com",
				Key:   "",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := service.Login(ctx, tt.req)

			if tt.wantErr {
				if err == nil {
					t.Error("Login() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("Login() unexpected error = %v", err)
				return
			}

			if resp.AccessToken == "" {
				t.Error("Login() returned empty access token")
			}

			if resp.RefreshToken == "" {
				t.Error("Login() returned empty refresh token")
			}

			if resp.Account == nil {
				t.Error("Login() returned nil account")
			}

			if resp.Account.Key != "" {
				t.Error("Login() returned account with key material")
			}

			if resp.ExpiresIn != int64(15*time.Minute.Seconds()) {
				t.Errorf("Login() expiresIn = %v, want %v", resp.ExpiresIn, 15*60)
			}
		})
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	accounts := newMockAccountStore()
	secret := "refresh-test-secret-key"
	service := NewAuthService(accounts, secret, 15*time.Minute, 7*24*time.Hour)

	accounts.Create(context.Background(), &domain.Account{
		ID:       "refresh-account-id",
		Username: "refreshuser",
		Email:    "refresh@example.com",
		Key:      "hashed",
	})

	validToken, _ := GenerateRefreshToken("refresh-account-id", 7*24*time.Hour, secret)
	expiredToken, _ := GenerateRefreshToken("refresh-account-id", -1*time.Hour, secret)

	tests := []struct {
		name    string
		req     *domain.RefreshTokenRequest
		wantErr bool
	}{
		{
			name: "valid refresh token",
			req: &domain.RefreshTokenRequest{
				RefreshToken: validToken,
			},
			wantErr: false,
		},
		{
			name: "expired refresh token",
			req: &domain.RefreshTokenRequest{
				RefreshToken: expiredToken,
			},
			wantErr: true,
		},
		{
			name: "invalid refresh token",
			req: &domain.RefreshTokenRequest{
				RefreshToken: "invalid.token.here",
			},
			wantErr: true,
		},
		{
			name: "empty refresh token",
			req: &domain.RefreshTokenRequest{
				RefreshToken: "",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := service.RefreshToken(tt.req)

			if tt.wantErr {
				if err == nil {
					t.Error("RefreshToken() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("RefreshToken() unexpected error = %v", err)
				return
			}

			if resp.AccessToken == "" {
				t.Error("RefreshToken() returned empty access token")
			}

			if resp.ExpiresIn != int64(15*time.Minute.Seconds()) {
				t.Errorf("RefreshToken() expiresIn = %v, want %v", resp.ExpiresIn, 15*60)
			}
		})
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	accounts := newMockAccountStore()
	secret := "validation-test-secret"
	service := NewAuthService(accounts, secret, 15*time.Minute, 7*24*time.Hour)

	validToken, _ := GenerateToken("account-id", 1*time.Hour, secret)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{
			name:    "valid token",
			token:   validToken,
			wantErr: false,
		},
		{
			name:    "invalid token",
			token:   "invalid.token.format",
			wantErr: true,
		},
		{
			name:    "empty token",
			token:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)

			if tt.wantErr {
				if err == nil {
					t.Error("ValidateToken() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("ValidateToken() unexpected error = %v", err)
				return
			}

			if claims == nil {
				t.Error("ValidateToken() returned nil claims")
			}
		})
	}
}
