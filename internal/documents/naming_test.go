package documents

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestDocumentRef(t *testing.T) {
	evalDate := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	uploadedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	t.Run("same inputs produce the same ref", func(t *testing.T) {
		a := DocumentRef("M-001", evalDate, uploadedAt, "progress notes.pdf")
		b := DocumentRef("M-001", evalDate, uploadedAt, "progress notes.pdf")
		if a != b {
			t.Errorf("refs differ for identical inputs: %q vs %q", a, b)
		}
	})

	t.Run("ref encodes member code, date and extension", func(t *testing.T) {
		ref := DocumentRef("M-001", evalDate, uploadedAt, "notes.PDF")
		if !strings.HasPrefix(ref, "M-001_2026-03-14_") {
			t.Errorf("unexpected ref prefix: %q", ref)
		}
		if !strings.HasSuffix(ref, ".pdf") {
			t.Errorf("extension should be lowercased, got %q", ref)
		}
	})

	t.Run("different upload times never collide", func(t *testing.T) {
		a := DocumentRef("M-001", evalDate, uploadedAt, "notes.pdf")
		b := DocumentRef("M-001", evalDate, uploadedAt.Add(time.Millisecond), "notes.pdf")
		if a == b {
			t.Errorf("expected distinct refs, both were %q", a)
		}
	})

	t.Run("client filename contributes only its extension", func(t *testing.T) {
		ref := DocumentRef("M-002", evalDate, uploadedAt, "../../etc/passwd.png")
		if strings.Contains(ref, "passwd") || strings.Contains(ref, "/") {
			t.Errorf("client filename leaked into ref: %q", ref)
		}
	})

	t.Run("filename without extension is allowed", func(t *testing.T) {
		ref := DocumentRef("M-003", evalDate, uploadedAt, "scan")
		if strings.Contains(ref, ".") {
			t.Errorf("expected no extension, got %q", ref)
		}
	})
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) *LocalStore {
		t.Helper()
		store, err := NewLocalStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewLocalStore: %v", err)
		}
		return store
	}

	t.Run("save then read round-trips", func(t *testing.T) {
		store := newStore(t)
		data := []byte("%PDF-1.4 fake document")

		if err := store.Save(ctx, "M-001_2026-03-14_1773999000000.pdf", data); err != nil {
			t.Fatalf("Save: %v", err)
		}

		got, err := store.Read(ctx, "M-001_2026-03-14_1773999000000.pdf")
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Error("read data does not match saved data")
		}
	})

	t.Run("delete removes the document", func(t *testing.T) {
		store := newStore(t)

		if err := store.Save(ctx, "M-001_2026-03-14_1.pdf", []byte("x")); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := store.Delete(ctx, "M-001_2026-03-14_1.pdf"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := store.Read(ctx, "M-001_2026-03-14_1.pdf"); err == nil {
			t.Error("expected read after delete to fail")
		}
	})

	t.Run("refs with path separators are rejected", func(t *testing.T) {
		store := newStore(t)

		for _, ref := range []string{"", "../escape.pdf", "sub/dir.pdf", "back\\slash.pdf"} {
			if err := store.Save(ctx, ref, []byte("x")); err == nil {
				t.Errorf("Save(%q) should be rejected", ref)
			}
			if _, err := store.Read(ctx, ref); err == nil {
				t.Errorf("Read(%q) should be rejected", ref)
			}
		}
	})
}
