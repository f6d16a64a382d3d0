package kb

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/KaramelBytes/medloom/internal/utils"
)

// ErrNotLoaded is returned by Store.Current before a knowledge base is available.
var ErrNotLoaded = errors.New("knowledge base not loaded")

// Encode serializes a knowledge base in its persisted form.
func Encode(kb *KnowledgeBase) ([]byte, error) {
	return utils.PrettyJSON(kb)
}

// Save writes the whole document atomically; a reader never observes a partial file.
func Save(kb *KnowledgeBase, path string) error {
	b, err := Encode(kb)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("save knowledge base: %w", err)
	}
	return nil
}

// Load reads a knowledge base from path.
func Load(path string) (*KnowledgeBase, error) {
	kb, _, err := readFile(path)
	return kb, err
}

func readFile(path string) (*KnowledgeBase, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read knowledge base: %w", err)
	}
	var kb KnowledgeBase
	if err := json.Unmarshal(b, &kb); err != nil {
		return nil, "", fmt.Errorf("decode knowledge base %s: %w", path, err)
	}
	return &kb, fingerprint(b), nil
}

func fingerprint(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// Store holds the active knowledge base for query answering. It is loaded explicitly and
// reloaded on demand; concurrent readers are safe.
type Store struct {
	path string

	mu          sync.RWMutex
	kb          *KnowledgeBase
	fingerprint string
	loadedAt    time.Time
}

// NewStore returns an empty store bound to a knowledge-base file.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Load reads the backing file. On failure the previously loaded document stays active.
func (s *Store) Load() error {
	kb, fp, err := readFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.kb, s.fingerprint, s.loadedAt = kb, fp, time.Now()
	s.mu.Unlock()
	return nil
}

// Reload re-reads the backing file after a pipeline run.
func (s *Store) Reload() error { return s.Load() }

// Set publishes an in-memory knowledge base without touching disk.
func (s *Store) Set(kb *KnowledgeBase) error {
	b, err := Encode(kb)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.kb, s.fingerprint, s.loadedAt = kb, fingerprint(b), time.Now()
	s.mu.Unlock()
	return nil
}

// Current returns the active knowledge base and its content fingerprint.
func (s *Store) Current() (*KnowledgeBase, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.kb == nil {
		return nil, "", ErrNotLoaded
	}
	return s.kb, s.fingerprint, nil
}

// Loaded reports whether a knowledge base is active and when it was loaded.
func (s *Store) Loaded() (bool, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kb != nil, s.loadedAt
}
