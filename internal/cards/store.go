package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultPack ships with the server and is always kept loaded.
const DefaultPack = "CAH Base Set"

const (
	officialDir = "official"
	customDir   = "custom"
)

var (
	ErrPackNotFound = errors.New("pack not found")
	ErrPackExists   = errors.New("pack already exists")
)

// Meta describes a catalog entry without keeping its cards in memory.
type Meta struct {
	Official      bool
	PromptCount   int
	ResponseCount int
}

// Listing is one row of the public catalog view.
type Listing struct {
	Name          string
	PromptCount   int
	ResponseCount int
}

type packEntry struct {
	pack *Pack
	refs atomic.Int32
}

// Store owns the on-disk pack catalog and the reference-counted set of
// packs currently held in memory. Official packs live under
// <dir>/official, player-created ones under <dir>/custom.
type Store struct {
	dir string

	mu      sync.RWMutex
	loaded  map[string]*packEntry
	catalog map[string]Meta
}

// NewStore scans dir for packs and loads the default pack. The official
// directory and the default pack must exist; the custom directory is
// created if missing.
func NewStore(dir string) (*Store, error) {
	s := &Store{
		dir:     dir,
		loaded:  make(map[string]*packEntry),
		catalog: make(map[string]Meta),
	}

	if err := s.scanDir(officialDir, true); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(dir, customDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating custom pack dir: %w", err)
	}
	if err := s.scanDir(customDir, false); err != nil {
		return nil, err
	}

	// Pin the default pack for the lifetime of the store.
	if _, err := s.Load(DefaultPack); err != nil {
		return nil, fmt.Errorf("loading default pack: %w", err)
	}
	return s, nil
}

func (s *Store) scanDir(sub string, official bool) error {
	dir := filepath.Join(s.dir, sub)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scanning pack dir %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		pack, err := readPack(filepath.Join(dir, e.Name()))
		if err != nil {
			slog.Warn("skipping unreadable pack", "file", e.Name(), "error", err)
			continue
		}
		if pack.Name != name {
			slog.Warn("pack name differs from file name, using file name",
				"file", e.Name(), "name", pack.Name)
		}
		s.catalog[name] = Meta{
			Official:      official,
			PromptCount:   len(pack.Prompts),
			ResponseCount: len(pack.Responses),
		}
	}
	return nil
}

func readPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pack Pack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if err := pack.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", filepath.Base(path), err)
	}
	return &pack, nil
}

// Load returns the named pack, reading it from disk if no one holds it
// yet, and bumps its reference count. Callers must pair every Load with
// an Unload.
func (s *Store) Load(name string) (*Pack, error) {
	s.mu.RLock()
	if e, ok := s.loaded[name]; ok {
		e.refs.Add(1)
		s.mu.RUnlock()
		return e.pack, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.loaded[name]; ok {
		// Lost the race to another loader.
		e.refs.Add(1)
		return e.pack, nil
	}

	meta, ok := s.catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, name)
	}
	sub := customDir
	if meta.Official {
		sub = officialDir
	}
	pack, err := readPack(filepath.Join(s.dir, sub, name+".json"))
	if err != nil {
		return nil, fmt.Errorf("loading pack %s: %w", name, err)
	}

	e := &packEntry{pack: pack}
	e.refs.Store(1)
	s.loaded[name] = e
	slog.Debug("pack loaded", "pack", name, "prompts", len(pack.Prompts), "responses", len(pack.Responses))
	return pack, nil
}

// Unload drops one reference to the named pack and evicts it once the
// count reaches zero. The default pack is never evicted.
func (s *Store) Unload(name string) {
	if name == DefaultPack {
		return
	}
	s.mu.RLock()
	e, ok := s.loaded[name]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if e.refs.Add(-1) > 0 {
		return
	}

	s.mu.Lock()
	if cur, ok := s.loaded[name]; ok && cur == e && cur.refs.Load() <= 0 {
		delete(s.loaded, name)
		slog.Debug("pack evicted", "pack", name)
	}
	s.mu.Unlock()
}

// Loaded reports whether the named pack is currently held in memory.
func (s *Store) Loaded(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.loaded[name]
	return ok
}

// Create validates a player-submitted pack and persists it under the
// custom directory. The pack is always stored as unofficial.
func (s *Store) Create(pack *Pack) error {
	if err := pack.Validate(); err != nil {
		return fmt.Errorf("invalid pack: %w", err)
	}
	if strings.ContainsAny(pack.Name, `/\`) || pack.Name == "." || pack.Name == ".." {
		return fmt.Errorf("invalid pack name %q", pack.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.catalog[pack.Name]; ok {
		return fmt.Errorf("%w: %s", ErrPackExists, pack.Name)
	}

	out := *pack
	out.Official = false
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("serializing pack %s: %w", pack.Name, err)
	}
	path := filepath.Join(s.dir, customDir, pack.Name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing pack: %w", err)
	}

	s.catalog[pack.Name] = Meta{
		Official:      false,
		PromptCount:   len(pack.Prompts),
		ResponseCount: len(pack.Responses),
	}
	slog.Info("pack created", "pack", pack.Name, "prompts", len(pack.Prompts), "responses", len(pack.Responses))
	return nil
}

// Catalog lists every known pack sorted by name.
func (s *Store) Catalog() []Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Listing, 0, len(s.catalog))
	for name, meta := range s.catalog {
		out = append(out, Listing{
			Name:          name,
			PromptCount:   meta.PromptCount,
			ResponseCount: meta.ResponseCount,
		})
	}
	slices.SortFunc(out, func(a, b Listing) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
