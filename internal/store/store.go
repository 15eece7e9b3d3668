// File: internal/store/store.go
package store

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Document is the persisted shell state. It is the single source of truth for
// restoring sessions at the next launch and is rewritten in full after every
// state-affecting action.
type Document struct {
	// Profiles holds known profile names in display/creation order.
	Profiles []string `json:"profiles"`
	// LastActive is the profile focused at the last shutdown.
	LastActive string `json:"last_active"`
	// LastURLs maps profile name to its last-visited location.
	LastURLs map[string]string `json:"last_urls"`

	// UI layout preferences.
	AccountsVisible    bool `json:"accounts_visible"`
	AccountsPanelWidth int  `json:"accounts_panel_width"`
	LeftbarWidth       int  `json:"leftbar_width"`
	// WinGeometry is an opaque hex-encoded window placement blob, restored verbatim.
	WinGeometry string `json:"win_geometry"`
}

// NewDocument returns a Document with layout defaults and no profiles.
func NewDocument() Document {
	return Document{
		LastURLs:           make(map[string]string),
		AccountsPanelWidth: 320,
		LeftbarWidth:       160,
	}
}

// Store reads and writes the persisted shell state at a fixed path.
type Store struct {
	path string
	log  *zap.Logger
}

// Open creates a store bound to path. The file is not required to exist.
func Open(path string, logger *zap.Logger) *Store {
	return &Store{
		path: path,
		log:  logger.Named("store"),
	}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted document. A missing file or a parse failure is not
// an error: both yield the defaults, so a corrupt state file never blocks
// startup.
func (s *Store) Load() Document {
	doc := NewDocument()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("Could not read state file; starting with defaults.",
				zap.String("path", s.path), zap.Error(err))
		}
		return doc
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("State file is corrupt; starting with defaults.",
			zap.String("path", s.path), zap.Error(err))
		return NewDocument()
	}
	if doc.LastURLs == nil {
		doc.LastURLs = make(map[string]string)
	}
	if doc.AccountsPanelWidth <= 0 {
		doc.AccountsPanelWidth = 320
	}
	if doc.LeftbarWidth <= 0 {
		doc.LeftbarWidth = 160
	}
	return doc
}

// Save rewrites the document atomically: the new content lands in a temp file
// in the same directory and is renamed over the old one, so a crash mid-write
// never leaves a truncated state file.
func (s *Store) Save(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("failed to write state: %w", writeErr)
		}
		return fmt.Errorf("failed to write state: %w", closeErr)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
