package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// CredentialConfig holds configuration for API key hashing and verification.
// The server keeps only a bcrypt hash of the configured client key in
// memory; the plaintext is discarded after startup.
type CredentialConfig struct {
	BcryptCost int
	Pepper     string // optional global secret for additional security
}

// NewCredentialConfig creates a new credential configuration from environment
// variables. It reads BCRYPT_COST (default: 12) and optionally API_KEY_PEPPER.
func NewCredentialConfig() (*CredentialConfig, error) {
	costStr := os.Getenv("BCRYPT_COST")
	if costStr == "" {
		costStr = "12" // default
	}

	cost, err := strconv.Atoi(costStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %v", err)
	}

	config := &CredentialConfig{
		BcryptCost: cost,
		Pepper:     os.Getenv("API_KEY_PEPPER"), // empty if not set
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// normalize validates the configuration.
func (c *CredentialConfig) normalize() error {
	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", c.BcryptCost)
	}
	return nil
}

// HashAPIKey hashes an API key using bcrypt (with optional pepper).
func (c *CredentialConfig) HashAPIKey(key string) (string, error) {
	secret := key
	if c.Pepper != "" {
		secret = key + c.Pepper
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash API key: %w", err)
	}

	return string(hash), nil
}

// VerifyAPIKey verifies an API key against a stored hash (with optional pepper).
func (c *CredentialConfig) VerifyAPIKey(key, storedHash string) bool {
	secret := key
	if c.Pepper != "" {
		secret = key + c.Pepper
	}

	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(secret))
	return err == nil
}
