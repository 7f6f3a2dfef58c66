package tabletmpl

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	if err != nil { t.Fatalf("New: %v", err) }

	tmpl, err := c.Get("standard")
	if err != nil { t.Fatalf("Get standard: %v", err) }
	if tmpl.SmallBlind != 25 || tmpl.BigBlind != 50 {
		t.Fatalf("unexpected blinds %d/%d", tmpl.SmallBlind, tmpl.BigBlind)
	}
	if _, err := c.Get("no-such-template"); err == nil {
		t.Fatalf("expected error for unknown template")
	}
	if len(c.Names()) < 3 {
		t.Fatalf("expected several default templates, got %v", c.Names())
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	override := []byte("templates:\n  - name: standard\n    small_blind: 100\n    big_blind: 200\n    stack: 40000\n    max_players: 6\n    variant: NLHE\n")
	if err := os.WriteFile(filepath.Join(dir, "override.yaml"), override, 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := New(dir)
	if err != nil { t.Fatalf("New: %v", err) }
	tmpl, err := c.Get("standard")
	if err != nil { t.Fatalf("Get: %v", err) }
	if tmpl.BigBlind != 200 {
		t.Fatalf("override not applied, big blind %d", tmpl.BigBlind)
	}
	// non-overridden names survive
	if _, err := c.Get("micro"); err != nil {
		t.Fatalf("micro lost after override: %v", err)
	}
}

func TestRejectsBadTemplate(t *testing.T) {
	dir := t.TempDir()
	bad := []byte("templates:\n  - name: broken\n    small_blind: 50\n    big_blind: 10\n    stack: 1000\n    max_players: 6\n")
	if err := os.WriteFile(filepath.Join(dir, "bad.yml"), bad, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected validation error for inverted blinds")
	}
}
