package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), []string{"png", "jpg", "jpeg", "gif"}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

// --- Test: save keeps the sanitized name behind a timestamp prefix ---

func TestStore_SaveUniquifiesName(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Save("photo.png", strings.NewReader("fake png bytes"))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasSuffix(name, "_photo.png") {
		t.Fatalf("expected timestamp prefix before the original name, got %q", name)
	}

	path, err := store.Path(name)
	if err != nil {
		t.Fatalf("path lookup failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "fake png bytes" {
		t.Fatalf("stored content mismatch: %q", data)
	}
}

// --- Test: two saves of the same client name never collide ---

func TestStore_SaveAvoidsCollisions(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Save("photo.png", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	second, err := store.Save("photo.png", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct stored names, both were %q", first)
	}
}

// --- Test: extension allow-list ---

func TestStore_SaveRejectsDisallowedExtension(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"script.exe", "page.html", "noext", "archive.tar.gz"} {
		if _, err := store.Save(name, strings.NewReader("x")); !errors.IsInvalidInput(err) {
			t.Fatalf("expected INVALID_INPUT for %q, got %v", name, err)
		}
	}

	if _, err := store.Save("", strings.NewReader("x")); !errors.IsInvalidInput(err) {
		t.Fatalf("expected INVALID_INPUT for empty name, got %v", err)
	}
}

// --- Test: hostile client names are defanged ---

func TestStore_SaveSanitizesName(t *testing.T) {
	store := newTestStore(t)

	name, err := store.Save("../../etc/passwd.png", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		t.Fatalf("expected a flat stored name, got %q", name)
	}

	// A name that sanitizes to nothing gets a generated one, extension kept.
	name, err = store.Save(".png", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasSuffix(name, ".png") {
		t.Fatalf("expected generated name to keep the extension, got %q", name)
	}
}

// --- Test: Path refuses traversal and reports missing files ---

func TestStore_Path(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Path(filepath.Join("..", "secret")); !errors.IsInvalidInput(err) {
		t.Fatalf("expected INVALID_INPUT for traversal, got %v", err)
	}
	if _, err := store.Path("missing.png"); !errors.IsNotFound(err) {
		t.Fatalf("expected NOT_FOUND for missing file, got %v", err)
	}
}
