// Package prefs persists the chat client's preferences in
// ~/.config/textbook-chat/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type Prefs struct {
	GatewayURL      string `toml:"gateway_url"`
	CredentialsPath string `toml:"credentials_path"`
	QuizDelayMS     int    `toml:"quiz_delay_ms"`
}

const (
	defaultPrefsPath       = "~/.config/textbook-chat/prefs.toml"
	defaultGatewayURL      = "http://localhost:8080"
	defaultCredentialsPath = "~/.config/textbook-chat/token"
	defaultQuizDelayMS     = 500
)

func DefaultPath() string {
	return defaultPrefsPath
}

func Defaults() Prefs {
	return Prefs{
		GatewayURL:      defaultGatewayURL,
		CredentialsPath: defaultCredentialsPath,
		QuizDelayMS:     defaultQuizDelayMS,
	}
}

// QuizDelay is the pause before a quiz is shown after its explanation.
func (p Prefs) QuizDelay() time.Duration {
	return time.Duration(p.QuizDelayMS) * time.Millisecond
}

// ResolvedCredentialsPath expands ~ in the credentials path.
func (p Prefs) ResolvedCredentialsPath() string {
	resolved, err := expandPath(p.CredentialsPath)
	if err != nil {
		return ""
	}
	return resolved
}

// Load reads preferences from path, falling back to defaults when the file
// is missing or unreadable.
func Load(path string) (Prefs, error) {
	prefs := Defaults()

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(data, &prefs); err != nil {
		return Defaults(), nil // Graceful degradation
	}

	if strings.TrimSpace(prefs.GatewayURL) == "" {
		prefs.GatewayURL = defaultGatewayURL
	}
	if strings.TrimSpace(prefs.CredentialsPath) == "" {
		prefs.CredentialsPath = defaultCredentialsPath
	}
	if prefs.QuizDelayMS < 0 {
		prefs.QuizDelayMS = defaultQuizDelayMS
	}
	return prefs, nil
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
