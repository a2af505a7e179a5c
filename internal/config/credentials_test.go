package config

import (
	"os"
	"testing"
)

func TestNewCredentialConfig(t *testing.T) {
	tests := []struct {
		name       string
		bcryptCost string
		pepper     string
		wantCost   int
		wantErr    bool
	}{
		{name: "default cost", bcryptCost: "", wantCost: 12},
		{name: "valid cost", bcryptCost: "11", wantCost: 11},
		{name: "boundary cost 10", bcryptCost: "10", wantCost: 10},
		{name: "boundary cost 14", bcryptCost: "14", wantCost: 14},
		{name: "cost too low", bcryptCost: "9", wantErr: true},
		{name: "cost too high", bcryptCost: "15", wantErr: true},
		{name: "non-numeric cost", bcryptCost: "invalid", wantErr: true},
		{name: "negative cost", bcryptCost: "-5", wantErr: true},
		{name: "with pepper", bcryptCost: "12", pepper: "test-pepper", wantCost: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.bcryptCost != "" {
				t.Setenv("BCRYPT_COST", tt.bcryptCost)
			} else {
				os.Unsetenv("BCRYPT_COST")
			}
			if tt.pepper != "" {
				t.Setenv("API_KEY_PEPPER", tt.pepper)
			} else {
				os.Unsetenv("API_KEY_PEPPER")
			}

			config, err := NewCredentialConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("NewCredentialConfig() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if config.BcryptCost != tt.wantCost {
					t.Errorf("NewCredentialConfig() BcryptCost = %v, want %v", config.BcryptCost, tt.wantCost)
				}
				if config.Pepper != tt.pepper {
					t.Errorf("NewCredentialConfig() Pepper = %v, want %v", config.Pepper, tt.pepper)
				}
			}
		})
	}
}

func TestCredentialConfig_HashAndVerify(t *testing.T) {
	// Low cost keeps the test fast
	t.Setenv("BCRYPT_COST", "10")
	config, err := NewCredentialConfig()
	if err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}

	key := "reelsmith-client-key"
	hash, err := config.HashAPIKey(key)
	if err != nil {
		t.Fatalf("HashAPIKey() error = %v", err)
	}
	if hash == "" {
		t.Error("HashAPIKey() returned empty hash")
	}

	// Hash should be different each time (bcrypt includes salt)
	hash2, err := config.HashAPIKey(key)
	if err != nil {
		t.Fatalf("HashAPIKey() error = %v", err)
	}
	if hash == hash2 {
		t.Error("HashAPIKey() should produce different hashes for same key (salt)")
	}

	if !config.VerifyAPIKey(key, hash) {
		t.Error("VerifyAPIKey() should return true for correct key")
	}
	if config.VerifyAPIKey("wrong-key", hash) {
		t.Error("VerifyAPIKey() should return false for incorrect key")
	}
}

func TestCredentialConfig_Pepper(t *testing.T) {
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("API_KEY_PEPPER", "test-pepper-123")

	config, err := NewCredentialConfig()
	if err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}

	key := "reelsmith-client-key"
	hash, err := config.HashAPIKey(key)
	if err != nil {
		t.Fatalf("HashAPIKey() error = %v", err)
	}

	if !config.VerifyAPIKey(key, hash) {
		t.Error("VerifyAPIKey() should return true for correct key with pepper")
	}

	// A config without the pepper must not accept the hash
	os.Unsetenv("API_KEY_PEPPER")
	noPepper, err := NewCredentialConfig()
	if err != nil {
		t.Fatalf("Failed to create config without pepper: %v", err)
	}
	if noPepper.VerifyAPIKey(key, hash) {
		t.Error("VerifyAPIKey() should return false when pepper is removed")
	}
}

func TestCredentialConfig_MalformedHash(t *testing.T) {
	t.Setenv("BCRYPT_COST", "10")
	config, err := NewCredentialConfig()
	if err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}

	for _, malformed := range []string{"", "not-a-hash", "$2a$12$invalid", "invalid$format"} {
		if config.VerifyAPIKey("test", malformed) {
			t.Errorf("VerifyAPIKey() should return false for malformed hash: %q", malformed)
		}
	}
}

func TestCredentialConfig_KeyExceeding72Bytes(t *testing.T) {
	t.Setenv("BCRYPT_COST", "10")
	config, err := NewCredentialConfig()
	if err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}

	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}

	// Bcrypt errors when input exceeds 72 bytes (does not truncate)
	hash, err := config.HashAPIKey(string(long))
	if err == nil {
		t.Error("HashAPIKey() should error when key exceeds 72 bytes")
	}
	if hash != "" {
		t.Error("HashAPIKey() should return empty hash when key exceeds 72 bytes")
	}
}
