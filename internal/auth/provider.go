package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoSession indicates no session token is available; the user must sign in
// with 'presence auth login'.
var ErrNoSession = errors.New("no session token; run 'presence auth login'")

// CredentialProvider supplies the bearer token that authorizes backend calls.
// The workflow engine never reads ambient storage directly.
type CredentialProvider interface {
	SessionToken(ctx context.Context) (string, error)
}

// StaticToken is a fixed credential, used in tests and for one-off sessions.
type StaticToken string

func (t StaticToken) SessionToken(context.Context) (string, error) {
	if t == "" {
		return "", ErrNoSession
	}
	return string(t), nil
}

// FileStore persists the session token at a configured path and serves it as
// a CredentialProvider.
type FileStore struct {
	path string
}

// NewFileStore constructs a token store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// SessionToken reads the stored token.
func (s *FileStore) SessionToken(context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("read session token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// Save stores a new session token, creating parent directories as needed.
// The file is user-readable only.
func (s *FileStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("session token must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write session token: %w", err)
	}
	return nil
}

// Clear removes the stored token. Missing files are not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session token: %w", err)
	}
	return nil
}
