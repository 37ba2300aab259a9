package hash

import (
	"strings"
	"testing"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{
			name:    "valid key",
			key:     "SecureKey123!",
			wantErr: false,
		},
		{
			name:    "minimum length key",
			key:     "Key1234!",
			wantErr: false,
		},
		{
			name:    "key too short",
			key:     "short",
			wantErr: true,
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed, err := Hash(tt.key)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Hash() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("Hash() unexpected error = %v", err)
				return
			}

			if hashed == "" {
				t.Error("Hash() returned empty hash")
			}

			if hashed == tt.key {
				t.Error("Hash() returned unhashed key")
			}

			if !strings.HasPrefix(hashed, "$2a$12$") {
				t.Errorf("Hash() invalid bcrypt format, got = %s", hashed[:10])
			}
		})
	}
}

func TestHashDifferentOutputs(t *testing.T) {
	key := "SameKey12345!"

	hash1, err := Hash(key)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	hash2, err := Hash(key)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if hash1 == hash2 {
		t.Error("Hash() should generate different hashes for same key (salt)")
	}
}

func TestCompare(t *testing.T) {
	key := "MySecureKey123!"
	hashed, err := Hash(key)
	if err != nil {
		t.Fatalf("Failed to generate hash: %v", err)
	}

	tests := []struct {
		name      string
		hashedKey string
		key       string
		wantErr   bool
	}{
		{
			name:      "correct key",
			hashedKey: hashed,
			key:       key,
			wantErr:   false,
		},
		{
			name:      "incorrect key",
			hashedKey: hashed,
			key:       "WrongKey",
			wantErr:   true,
		},
		{
			name:      "empty key",
			hashedKey: hashed,
			key:       "",
			wantErr:   true,
		},
		{
			name:      "case sensitive",
			hashedKey: hashed,
			key:       strings.ToUpper(key),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Compare(tt.hashedKey, tt.key)

			if tt.wantErr {
				if err == nil {
					t.Error("Compare() expected error but got none")
				}
			} else {
				if err != nil {
					t.Errorf("Compare() unexpected error = %v", err)
				}
			}
		})
	}
}

func BenchmarkHash(b *testing.B) {
	key := "BenchmarkKey123!"

	for i := 0; i < b.N; i++ {
		_, err := Hash(key)
		if err != nil {
			b.Fatalf("Hash() error = %v", err)
		}
	}
}

func BenchmarkCompare(b *testing.B) {
	key := "BenchmarkKey123!"
	hashed, _ := Hash(key)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = Compare(hashed, key)
	}
}
