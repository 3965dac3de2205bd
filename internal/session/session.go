// Package session persists who is logged in between runs.
package session

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// CurrentVersion is the schema version written by Save.
const CurrentVersion = "1.1"

// Role says which screen a session belongs to.
type Role string

const (
	RoleNone   Role = ""
	RoleBroker Role = "broker"
	RoleAdmin  Role = "admin"
)

// State is the on-disk session.
type State struct {
	Version    string    `json:"version"`
	Role       Role      `json:"role,omitempty"`
	BrokerID   string    `json:"broker_id,omitempty"`
	LoggedInAt time.Time `json:"logged_in_at,omitempty"`

	// Written by 1.0 files only, replaced by Role.
	LegacyAdmin bool `json:"is_admin,omitempty"`
}

// LoggedIn reports whether the state names a broker or the admin.
func (s State) LoggedIn() bool {
	return s.Role == RoleAdmin || (s.Role == RoleBroker && s.BrokerID != "")
}

// Store reads and writes the session file.
type Store struct {
	path string
	log  *zap.SugaredLogger
}

func NewStore(path string, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.S()
	}
	return &Store{path: path, log: log}
}

func (s *Store) Path() string { return s.path }

// Load reads the session. A missing file is an empty, logged-out state.
func (s *Store) Load() (State, error) {
	st := State{Version: CurrentVersion}

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return st, fmt.Errorf("session: decode %s: %w", s.path, err)
	}

	if migrate(&st, s.log) {
		s.log.Infow("session migrated, saving", "version", st.Version)
		if err := s.Save(st); err != nil {
			return st, err
		}
	}
	return st, nil
}

// migrate upgrades older files in place. It reports whether anything changed.
func migrate(st *State, log *zap.SugaredLogger) bool {
	updated := false

	// 1.0 -> 1.1: is_admin flag becomes a role
	if st.Version < "1.1" {
		log.Infow("migrating session schema", "from", st.Version, "to", "1.1")
		switch {
		case st.LegacyAdmin:
			st.Role = RoleAdmin
		case st.BrokerID != "":
			st.Role = RoleBroker
		}
		st.LegacyAdmin = false
		st.Version = "1.1"
		updated = true
	}

	return updated
}

// Save writes the state atomically: temp file, fsync, rename.
func (s *Store) Save(st State) error {
	st.Version = CurrentVersion
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("session: create dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("session: create temp file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("session: write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("session: sync temp file: %w", err)
	}
	// Close before rename (required on Windows).
	f.Close()

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("session: replace %s: %w", s.path, err)
	}
	return nil
}

// Clear logs out by writing an empty state.
func (s *Store) Clear() error {
	return s.Save(State{})
}
