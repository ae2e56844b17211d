// Package credentials looks up the access token saved by the sign-in flow.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// FileStore reads the token from a file on every lookup, so signing in or
// out in another process takes effect immediately.
type FileStore struct {
	path string
	now  func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Token returns the stored token. A missing file, an empty file or a JWT
// whose exp claim has passed all count as signed out. Tokens that are not
// JWTs are passed through unchecked.
func (s *FileStore) Token() (string, bool) {
	if strings.TrimSpace(s.path) == "" {
		return "", false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false
	}
	if expired(token, s.now()) {
		return "", false
	}
	return token, true
}

// Save writes token with owner-only permissions.
func (s *FileStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Clear signs out. Clearing a missing file is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

// expired inspects the exp claim without verifying the signature; the
// client has no key and the backend remains the authority.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// Static is a fixed token, used for --token.
type Static string

func (s Static) Token() (string, bool) {
	t := strings.TrimSpace(string(s))
	return t, t != ""
}
