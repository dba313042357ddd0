// Package testutil holds shared fixtures and fakes for package tests:
// canned card packs, an in-memory Hub, and a scripted websocket client
// for integration tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"cardczar/internal/cards"
)

// NewPack builds a pack with deterministic card texts and pick=1
// prompts.
func NewPack(name string, prompts, responses int) *cards.Pack {
	return NewPickPack(name, prompts, responses, 1)
}

// NewPickPack is NewPack with a chosen pick value on every prompt.
func NewPickPack(name string, prompts, responses, pick int) *cards.Pack {
	pack := &cards.Pack{Name: name}
	for i := 0; i < prompts; i++ {
		pack.Prompts = append(pack.Prompts, cards.Prompt{
			Text: fmt.Sprintf("%s prompt %d _", name, i),
			Pick: pick,
		})
	}
	for i := 0; i < responses; i++ {
		pack.Responses = append(pack.Responses, fmt.Sprintf("%s response %d", name, i))
	}
	return pack
}

// WritePack persists a pack file under dir/official or dir/custom.
func WritePack(tb testing.TB, dir string, official bool, pack *cards.Pack) {
	tb.Helper()

	sub := "custom"
	if official {
		sub = "official"
	}
	data, err := json.Marshal(pack)
	if err != nil {
		tb.Fatalf("marshaling pack %s: %v", pack.Name, err)
	}
	if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
		tb.Fatalf("creating %s dir: %v", sub, err)
	}
	path := filepath.Join(dir, sub, pack.Name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("writing pack %s: %v", path, err)
	}
}

// NewStore builds a pack store in a temp dir holding the default pack
// plus any extras (written as custom packs).
func NewStore(tb testing.TB, extra ...*cards.Pack) *cards.Store {
	tb.Helper()

	dir := tb.TempDir()
	WritePack(tb, dir, true, NewPack(cards.DefaultPack, 20, 60))
	for _, pack := range extra {
		WritePack(tb, dir, false, pack)
	}

	store, err := cards.NewStore(dir)
	if err != nil {
		tb.Fatalf("building pack store: %v", err)
	}
	return store
}
