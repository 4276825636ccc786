package profile

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/accounts/internal/domain"
	"github.com/splax/accounts/internal/repository"
	"github.com/splax/accounts/internal/repository/sqlite"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "profile.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, store *sqlite.Store, id, email, username string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, store.CreateAccount(context.Background(), &domain.Account{
		ID:           id,
		Name:         "User " + id,
		Email:        email,
		Username:     username,
		PasswordHash: []byte("hash"),
		IsVerified:   true,
		About:        "about " + id,
		Skills:       []string{"go"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
}

func TestGetProfile(t *testing.T) {
	store := openStore(t)
	seed(t, store, "acc-1", "a@x.com", "ana")
	svc := New(store, newLogger())

	view, err := svc.GetProfile(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountView{
		ID:         "acc-1",
		Name:       "User acc-1",
		Email:      "a@x.com",
		Username:   "ana",
		IsVerified: true,
		About:      "about acc-1",
		Skills:     []string{"go"},
	}, view)

	_, err = svc.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateNameLeavesOtherFieldsUnchanged(t *testing.T) {
	store := openStore(t)
	seed(t, store, "acc-1", "a@x.com", "ana")
	svc := New(store, newLogger())

	before, err := svc.GetProfile(context.Background(), "acc-1")
	require.NoError(t, err)
	after, err := svc.UpdateProfile(context.Background(), "acc-1", domain.ProfilePatch{Name: domain.Some("X")})
	require.NoError(t, err)

	expected := before
	expected.Name = "X"
	assert.Equal(t, expected, after)
}

func TestUpdateEmailCollision(t *testing.T) {
	store := openStore(t)
	seed(t, store, "acc-1", "a@x.com", "ana")
	seed(t, store, "acc-2", "b@x.com", "bob")
	svc := New(store, newLogger())

	_, err := svc.UpdateProfile(context.Background(), "acc-2", domain.ProfilePatch{Email: domain.Some("a@x.com")})
	require.ErrorIs(t, err, domain.ErrConflict)

	first, err := svc.GetProfile(context.Background(), "acc-1")
	require.NoError(t, err)
	second, err := svc.GetProfile(context.Background(), "acc-2")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", first.Email)
	assert.Equal(t, "b@x.com", second.Email)
}

func TestUpdateKeepsOwnEmail(t *testing.T) {
	store := openStore(t)
	seed(t, store, "acc-1", "a@x.com", "ana")
	svc := New(store, newLogger())

	view, err := svc.UpdateProfile(context.Background(), "acc-1", domain.ProfilePatch{
		Email: domain.Some("a@x.com"),
		About: domain.Some("new"),
	})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", view.Email)
	assert.Equal(t, "new", view.About)
}

func TestUpdateClearsAboutAndSkills(t *testing.T) {
	store := openStore(t)
	seed(t, store, "acc-1", "a@x.com", "ana")
	svc := New(store, newLogger())

	var patch domain.ProfilePatch
	require.NoError(t, json.Unmarshal([]byte(`{"about":"","skills":[],"username":"evil","isVerified":false}`), &patch))
	view, err := svc.UpdateProfile(context.Background(), "acc-1", patch)
	require.NoError(t, err)

	assert.Equal(t, "", view.About)
	assert.Equal(t, []string{}, view.Skills)
	assert.Equal(t, "ana", view.Username)
	assert.True(t, view.IsVerified)
}

func TestUpdateRejectsEmptyRequiredFields(t *testing.T) {
	store := openStore(t)
	seed(t, store, "acc-1", "a@x.com", "ana")
	svc := New(store, newLogger())

	for _, patch := range []domain.ProfilePatch{
		{Name: domain.Some(" ")},
		{Email: domain.Some("")},
	} {
		_, err := svc.UpdateProfile(context.Background(), "acc-1", patch)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestUpdateMissingAccount(t *testing.T) {
	svc := New(openStore(t), newLogger())
	_, err := svc.UpdateProfile(context.Background(), "ghost", domain.ProfilePatch{Name: domain.Some("X")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// conflictOnWrite passes the uniqueness pre-check but fails the write, as when a
// concurrent update claims the email first.
type conflictOnWrite struct {
	repository.AccountRepository
}

func (c conflictOnWrite) EmailTaken(context.Context, string, string) (bool, error) {
	return false, nil
}

func (c conflictOnWrite) UpdateAccount(context.Context, *domain.Account) error {
	return repository.ErrConflict
}

func TestUpdateMapsStoreConflict(t *testing.T) {
	store := openStore(t)
	seed(t, store, "acc-1", "a@x.com", "ana")
	svc := New(conflictOnWrite{AccountRepository: store}, newLogger())

	_, err := svc.UpdateProfile(context.Background(), "acc-1", domain.ProfilePatch{Email: domain.Some("z@x.com")})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdateWrapsUnexpectedErrors(t *testing.T) {
	store := openStore(t)
	seed(t, store, "acc-1", "a@x.com", "ana")
	boom := errors.New("disk full")
	svc := New(failingWrite{AccountRepository: store, err: boom}, newLogger())

	_, err := svc.UpdateProfile(context.Background(), "acc-1", domain.ProfilePatch{About: domain.Some("x")})
	require.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, domain.ErrConflict))
}

type failingWrite struct {
	repository.AccountRepository
	err error
}

func (f failingWrite) UpdateAccount(context.Context, *domain.Account) error {
	return f.err
}
