package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials configure the operator login that issues super_admin
// tokens. PasswordHash is a bcrypt hash of the password plus Pepper.
type AdminCredentials struct {
	Username     string `envconfig:"ADMIN_USERNAME" default:"admin"`
	PasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`
	Pepper       string `envconfig:"PASSWORD_PEPPER"`
	BcryptCost   int    `envconfig:"BCRYPT_COST" default:"12"`
}

// NewAdminCredentials reads the operator login from the environment. A missing
// hash is allowed and disables the login.
func NewAdminCredentials() (*AdminCredentials, error) {
	var c AdminCredentials
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("invalid admin credentials: %w", err)
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *AdminCredentials) normalize() error {
	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", c.BcryptCost)
	}
	return nil
}

// Enabled reports whether an operator login is configured.
func (c *AdminCredentials) Enabled() bool {
	return c.PasswordHash != ""
}

// HashPassword hashes a password using bcrypt (with optional pepper).
func (c *AdminCredentials) HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw+c.Pepper), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify checks a username and password against the configured login.
func (c *AdminCredentials) Verify(username, pw string) bool {
	if !c.Enabled() || username != c.Username {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(pw+c.Pepper)) == nil
}
