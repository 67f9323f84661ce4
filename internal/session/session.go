// Package session keeps the CLI's local state: the access token, the signed-in
// user and the accessibility preferences. The state is read once by Open and
// every mutation is written through to disk before it returns.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNotLoggedIn is returned by Token when no unexpired token is stored.
var ErrNotLoggedIn = errors.New("no valid token (login required)")

// Reading font size delta bounds, in pixels.
const (
	MinFontDelta  = -8
	MaxFontDelta  = 8
	FontDeltaStep = 2
)

// User is the signed-in identity as reported by the server at login.
type User struct {
	ID     int64  `json:"id"`
	Nome   string `json:"nome"`
	Email  string `json:"email"`
	Perfil string `json:"perfil"`
}

// Prefs are the accessibility preferences. They survive logout.
type Prefs struct {
	DarkMode  bool `json:"dark_mode"`
	FontDelta int  `json:"reading_font_size_delta"`
}

// State is the persisted document.
type State struct {
	Server      string    `json:"server,omitempty"`
	AccessToken string    `json:"access_token,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	User        *User     `json:"user,omitempty"`
	Prefs       Prefs     `json:"prefs"`
}

// Store is the process-wide session. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	path      string
	state     State
	discarded bool
	now       func() time.Time
}

// Dir returns the per-user configuration directory.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "portaljuridico")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "portaljuridico")
}

// DefaultPath is the session file under Dir.
func DefaultPath() string { return filepath.Join(Dir(), "session.json") }

// Open loads the session at path. A missing file is an empty session. An
// unreadable document is discarded and removed, leaving the user signed out.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(b, &s.state); err != nil {
		s.state = State{}
		s.discarded = true
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return nil, fmt.Errorf("remove corrupt session: %w", rmErr)
		}
		return s, nil
	}
	s.state.Prefs.FontDelta = clampDelta(s.state.Prefs.FontDelta)
	return s, nil
}

// Discarded reports whether Open threw away an unreadable session file.
func (s *Store) Discarded() bool { return s.discarded }

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// Authenticated reports whether an unexpired token is present. The token is
// not verified locally.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated()
}

func (s *Store) authenticated() bool {
	return s.state.AccessToken != "" && s.now().Before(s.state.ExpiresAt)
}

// Token returns the access token, or ErrNotLoggedIn.
func (s *Store) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authenticated() {
		return "", ErrNotLoggedIn
	}
	return s.state.AccessToken, nil
}

// Login stores a fresh token for server and user.
func (s *Store) Login(server, token string, expiresAt time.Time, u User) error {
	if token == "" {
		return errors.New("empty token")
	}
	return s.update(func(st *State) {
		st.Server = server
		st.AccessToken = token
		st.ExpiresAt = expiresAt.UTC()
		st.User = &u
	})
}

// Logout forgets the token and the user. Preferences are kept.
func (s *Store) Logout() error {
	return s.update(func(st *State) {
		st.Server = ""
		st.AccessToken = ""
		st.ExpiresAt = time.Time{}
		st.User = nil
	})
}

// SetDarkMode switches the dark theme.
func (s *Store) SetDarkMode(on bool) error {
	return s.update(func(st *State) { st.Prefs.DarkMode = on })
}

// IncreaseFont grows the reading font by one step, up to MaxFontDelta.
func (s *Store) IncreaseFont() error {
	return s.update(func(st *State) { st.Prefs.FontDelta = clampDelta(st.Prefs.FontDelta + FontDeltaStep) })
}

// DecreaseFont shrinks the reading font by one step, down to MinFontDelta.
func (s *Store) DecreaseFont() error {
	return s.update(func(st *State) { st.Prefs.FontDelta = clampDelta(st.Prefs.FontDelta - FontDeltaStep) })
}

// ResetFont restores the default reading font size.
func (s *Store) ResetFont() error {
	return s.update(func(st *State) { st.Prefs.FontDelta = 0 })
}

func clampDelta(d int) int {
	return max(MinFontDelta, min(MaxFontDelta, d))
}

// update applies fn and persists the result. On a write error the in-memory
// state is left unchanged.
func (s *Store) update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	if next.User != nil {
		u := *next.User
		next.User = &u
	}
	fn(&next)
	if err := write(s.path, next); err != nil {
		return err
	}
	s.state = next
	return nil
}

func write(path string, st State) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
