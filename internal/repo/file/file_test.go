package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

func TestFileStore_CRUD(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s, err := New(base, "checks")
	require.NoError(t, err)

	c := domain.Check{ID: "c1", OwnerID: "5551234567", URL: "example.com", SuccessCodes: []int{200}}
	require.NoError(t, s.Create(ctx, c))
	assert.True(t, errors.Is(s.Create(ctx, c), repo.ErrExists))
	assert.FileExists(t, filepath.Join(base, "checks", "c1.json"))

	got, err := s.Read(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, c.OwnerID, got.OwnerID)
	assert.False(t, got.Evaluated())

	now := time.Now().UTC().Truncate(time.Second)
	got.State = domain.StateDown
	got.LastCheckedAt = &now
	require.NoError(t, s.Update(ctx, got))

	again, err := s.Read(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateDown, again.State)
	assert.True(t, again.LastCheckedAt.Equal(now))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.CheckID{"c1"}, ids)

	require.NoError(t, s.Remove(ctx, "c1"))
	assert.True(t, errors.Is(s.Remove(ctx, "c1"), repo.ErrNotFound))
}

func TestFileStore_UpdateMissingFails(t *testing.T) {
	s, err := New(t.TempDir(), "checks")
	require.NoError(t, err)
	err = s.Update(context.Background(), domain.Check{ID: "ghost"})
	assert.True(t, errors.Is(err, repo.ErrNotFound))

	ids, _ := s.List(context.Background())
	assert.Empty(t, ids, "update must not create the record")
}

func TestFileStore_CorruptAndTraversal(t *testing.T) {
	base := t.TempDir()
	s, err := New(base, "checks")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(base, "checks", "bad.json"), []byte("{oops"), 0o644))

	_, err = s.Read(context.Background(), "bad")
	assert.True(t, errors.Is(err, repo.ErrCorrupt))

	_, err = s.Read(context.Background(), "../escape")
	assert.Error(t, err)
}
