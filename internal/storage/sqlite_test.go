package storage

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kiku/internal/models"
)

func TestSQLiteStore_DocumentsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx", "documents.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	docs := []models.Document{
		{Content: "Para curso A temos vagas:30", Kind: models.KindTable},
		{Content: "O vestibular acontece em dezembro.", Kind: models.KindText},
		{Content: "linha com 'aspas' e\nquebra", Kind: models.KindText},
	}
	if err := store.WriteDocuments(ctx, docs); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	ro, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()

	n, err := ro.CountDocuments(ctx)
	if err != nil || n != 3 {
		t.Fatalf("CountDocuments = %d, %v", n, err)
	}
	records, err := ro.ReadDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range records {
		if r.ID != i {
			t.Errorf("record %d has id %d", i, r.ID)
		}
		if r.Document != docs[i] {
			t.Errorf("record %d = %+v, want %+v", i, r.Document, docs[i])
		}
	}
}

func TestSQLiteStore_RejectsUnknownKind(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "documents.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	err = store.WriteDocuments(context.Background(), []models.Document{{Content: "x", Kind: "image"}})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if n, _ := store.CountDocuments(context.Background()); n != 0 {
		t.Errorf("failed write should roll back, found %d documents", n)
	}
}

func TestSQLiteStore_ReadDocumentsValidatesKind(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "documents.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	// Bypass the CHECK constraint the way a hand-edited file could.
	conn, err := store.db.Conn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.ExecContext(ctx, `PRAGMA ignore_check_constraints = ON`); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.ExecContext(ctx, `INSERT INTO documents (id, kind, content) VALUES (0, 'blob', 'x')`); err != nil {
		t.Fatal(err)
	}
	_ = conn.Close()
	if _, err := store.ReadDocuments(ctx); err == nil {
		t.Error("expected error for kind outside the closed set")
	}
}

func TestSQLiteStore_Meta(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "documents.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, err := store.ReadMeta(ctx); err == nil {
		t.Error("expected error for missing meta")
	}

	created := time.Date(2024, 11, 5, 10, 30, 0, 0, time.UTC)
	want := Meta{Dimensions: 384, Metric: "cosine", Count: 12, BuildID: "b-1", CreatedAt: created}
	if err := store.WriteMeta(ctx, want); err != nil {
		t.Fatal(err)
	}
	want.Count = 13
	if err := store.WriteMeta(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := store.ReadMeta(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Dimensions != 384 || got.Metric != "cosine" || got.Count != 13 || got.BuildID != "b-1" || !got.CreatedAt.Equal(created) {
		t.Errorf("ReadMeta = %+v", got)
	}
}

func TestOpenSQLiteStore_Missing(t *testing.T) {
	_, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "nope.db"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}
