package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sakif/listen-api/internal/apperror"
	"github.com/sakif/listen-api/internal/model"
)

// Each test gets its own ":memory:" database. The pool holds a single
// connection, so the schema and the foreign_keys pragma apply to every query.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestMusician registers an account and returns its musician profile.
func createTestMusician(t *testing.T, db *DB, username string) *model.Musician {
	t.Helper()
	account := &model.Account{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "First " + username,
		LastName:  "Last " + username,
	}
	musician := &model.Musician{Bio: "bio of " + username}
	if err := db.CreateAccount(context.Background(), account, musician); err != nil {
		t.Fatalf("failed to create test musician: %v", err)
	}
	return musician
}

func createTestExcerpt(t *testing.T, db *DB, name string, owner *int64) *model.Excerpt {
	t.Helper()
	excerpt := &model.Excerpt{Name: name, MusicianID: owner}
	if err := db.CreateExcerpt(context.Background(), excerpt); err != nil {
		t.Fatalf("failed to create test excerpt: %v", err)
	}
	return excerpt
}

func createTestRecording(t *testing.T, db *DB, label string, excerpt *int64) *model.Recording {
	t.Helper()
	date, _ := model.ParseDate("2024-01-01")
	recording := &model.Recording{Audio: "https://cdn.example.com/" + label + ".mp3", ExcerptID: excerpt, Date: date, Label: label}
	if err := db.CreateRecording(context.Background(), recording); err != nil {
		t.Fatalf("failed to create test recording: %v", err)
	}
	return recording
}

func ptr(id int64) *int64 { return &id }

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func countRows(t *testing.T, db *DB, table string) int {
	t.Helper()
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	return n
}

// =========================================================================
// SCHEMA TESTS
// =========================================================================

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listen.db")

	first, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	createTestMusician(t, first, "alice")
	first.Close()

	second, err := New(path)
	if err != nil {
		t.Fatalf("New() on existing db error = %v", err)
	}
	defer second.Close()

	if got := countRows(t, second, "musicians"); got != 1 {
		t.Errorf("musicians after reopen = %d, want 1", got)
	}
}

func TestNew_ForeignKeysEnabled(t *testing.T) {
	db := newTestDB(t)

	var enabled int
	if err := db.conn.QueryRow(`PRAGMA foreign_keys`).Scan(&enabled); err != nil {
		t.Fatalf("reading pragma: %v", err)
	}
	if enabled != 1 {
		t.Errorf("foreign_keys = %d, want 1", enabled)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
