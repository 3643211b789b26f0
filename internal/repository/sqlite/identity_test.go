package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/listen-api/internal/apperror"
	"github.com/sakif/listen-api/internal/model"
)

// =========================================================================
// ACCOUNT TESTS
// =========================================================================

func TestCreateAccount(t *testing.T) {
	db := newTestDB(t)

	musician := createTestMusician(t, db, "alice")

	if musician.ID == 0 {
		t.Error("CreateAccount() did not set musician.ID")
	}
	if musician.AccountID == 0 || musician.AccountID != musician.Account.ID {
		t.Errorf("musician.AccountID = %d, account.ID = %d", musician.AccountID, musician.Account.ID)
	}
	if musician.Account.CreatedAt.IsZero() {
		t.Error("CreateAccount() did not set CreatedAt")
	}
}

func TestCreateAccount_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestMusician(t, db, "alice")

	err := db.CreateAccount(context.Background(),
		&model.Account{Username: "alice"}, &model.Musician{})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateAccount() error = %v, want ErrConflict", err)
	}

	// The failed registration must not leave an orphan musician behind.
	if got := countRows(t, db, "musicians"); got != 1 {
		t.Errorf("musicians = %d, want 1", got)
	}
}

func TestCreateAccount_DuplicateGitHubID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.CreateAccount(ctx, &model.Account{Username: "octocat", GitHubID: ptr(583231)}, &model.Musician{}); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	err := db.CreateAccount(ctx, &model.Account{Username: "octocat-2", GitHubID: ptr(583231)}, &model.Musician{})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateAccount() error = %v, want ErrConflict", err)
	}
	if !strings.Contains(err.Error(), "GitHub user 583231") {
		t.Errorf("error = %q, want it to name the GitHub user", err.Error())
	}
	if strings.Contains(err.Error(), "username") {
		t.Errorf("error = %q, must not blame the username", err.Error())
	}
}

func TestGetAccountByUsername(t *testing.T) {
	db := newTestDB(t)
	created := createTestMusician(t, db, "alice")

	account, err := db.GetAccountByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetAccountByUsername() error = %v", err)
	}
	if account.ID != created.AccountID {
		t.Errorf("account.ID = %d, want %d", account.ID, created.AccountID)
	}
	if account.Email != "alice@example.com" {
		t.Errorf("account.Email = %q", account.Email)
	}

	_, err = db.GetAccountByUsername(context.Background(), "nobody")
	assertNotFound(t, err)
}

func TestGetAccountByGitHubID(t *testing.T) {
	db := newTestDB(t)

	account := &model.Account{Username: "octocat", GitHubID: ptr(583231)}
	if err := db.CreateAccount(context.Background(), account, &model.Musician{}); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	got, err := db.GetAccountByGitHubID(context.Background(), 583231)
	if err != nil {
		t.Fatalf("GetAccountByGitHubID() error = %v", err)
	}
	if got.Username != "octocat" {
		t.Errorf("Username = %q, want octocat", got.Username)
	}
	if got.GitHubID == nil || *got.GitHubID != 583231 {
		t.Errorf("GitHubID = %v", got.GitHubID)
	}

	_, err = db.GetAccountByGitHubID(context.Background(), 1)
	assertNotFound(t, err)
}

// =========================================================================
// MUSICIAN TESTS
// =========================================================================

func TestGetMusician_LoadsAccount(t *testing.T) {
	db := newTestDB(t)
	created := createTestMusician(t, db, "alice")

	got, err := db.GetMusician(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetMusician() error = %v", err)
	}
	if got.Bio != "bio of alice" {
		t.Errorf("Bio = %q", got.Bio)
	}
	if got.Account.Username != "alice" || got.Account.FirstName != "First alice" {
		t.Errorf("Account = %+v", got.Account)
	}

	byAccount, err := db.GetMusicianByAccount(context.Background(), created.AccountID)
	if err != nil {
		t.Fatalf("GetMusicianByAccount() error = %v", err)
	}
	if byAccount.ID != created.ID {
		t.Errorf("GetMusicianByAccount().ID = %d, want %d", byAccount.ID, created.ID)
	}

	_, err = db.GetMusician(context.Background(), 999)
	assertNotFound(t, err)
}

func TestListMusicians(t *testing.T) {
	db := newTestDB(t)

	musicians, err := db.ListMusicians(context.Background())
	if err != nil {
		t.Fatalf("ListMusicians() error = %v", err)
	}
	if musicians == nil || len(musicians) != 0 {
		t.Errorf("ListMusicians() on empty db = %v, want empty non-nil slice", musicians)
	}

	createTestMusician(t, db, "alice")
	createTestMusician(t, db, "bob")

	musicians, err = db.ListMusicians(context.Background())
	if err != nil {
		t.Fatalf("ListMusicians() error = %v", err)
	}
	if len(musicians) != 2 || musicians[0].Account.Username != "alice" || musicians[1].Account.Username != "bob" {
		t.Errorf("ListMusicians() = %+v", musicians)
	}
}

func TestUpdateMusician(t *testing.T) {
	db := newTestDB(t)
	m := createTestMusician(t, db, "alice")

	m.Bio = "cellist"
	m.Account.FirstName = "Alice"
	m.Account.Username = "alice2"
	if err := db.UpdateMusician(context.Background(), m); err != nil {
		t.Fatalf("UpdateMusician() error = %v", err)
	}

	got, err := db.GetMusician(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("GetMusician() error = %v", err)
	}
	if got.Bio != "cellist" || got.Account.FirstName != "Alice" || got.Account.Username != "alice2" {
		t.Errorf("after update = %+v", got)
	}
}

func TestUpdateMusician_NotFound(t *testing.T) {
	db := newTestDB(t)
	err := db.UpdateMusician(context.Background(), &model.Musician{ID: 42})
	assertNotFound(t, err)
}

func TestUpdateMusician_UsernameTaken(t *testing.T) {
	db := newTestDB(t)
	createTestMusician(t, db, "alice")
	bob := createTestMusician(t, db, "bob")

	bob.Account.Username = "alice"
	err := db.UpdateMusician(context.Background(), bob)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("UpdateMusician() error = %v, want ErrConflict", err)
	}
}

func TestDeleteMusician_NullsReferences(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestMusician(t, db, "alice")
	bob := createTestMusician(t, db, "bob")

	excerpt := createTestExcerpt(t, db, "Bach Suite 1", ptr(alice.ID))
	conn := &model.Connection{PracticerID: ptr(alice.ID), FollowerID: ptr(bob.ID), CreatedOn: model.Today()}
	if err := db.CreateConnection(ctx, conn); err != nil {
		t.Fatalf("CreateConnection() error = %v", err)
	}

	if err := db.DeleteMusician(ctx, alice.ID); err != nil {
		t.Fatalf("DeleteMusician() error = %v", err)
	}

	_, err := db.GetMusician(ctx, alice.ID)
	assertNotFound(t, err)
	_, err = db.GetAccountByUsername(ctx, "alice")
	assertNotFound(t, err)

	gotExcerpt, err := db.GetExcerpt(ctx, excerpt.ID)
	if err != nil {
		t.Fatalf("excerpt should survive its owner: %v", err)
	}
	if gotExcerpt.MusicianID != nil {
		t.Errorf("excerpt.MusicianID = %v, want nil", *gotExcerpt.MusicianID)
	}

	gotConn, err := db.GetConnection(ctx, conn.ID)
	if err != nil {
		t.Fatalf("connection should survive its practicer: %v", err)
	}
	if gotConn.PracticerID != nil {
		t.Errorf("connection.PracticerID = %v, want nil", *gotConn.PracticerID)
	}
	if gotConn.FollowerID == nil || *gotConn.FollowerID != bob.ID {
		t.Errorf("connection.FollowerID = %v, want %d", gotConn.FollowerID, bob.ID)
	}
}

func TestDeleteMusician_NotFound(t *testing.T) {
	db := newTestDB(t)
	assertNotFound(t, db.DeleteMusician(context.Background(), 7))
}
