package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

func sample() domain.Check {
	return domain.Check{ID: "c1", OwnerID: "5551234567", Protocol: domain.ProtocolHTTP,
		URL: "example.com", Method: domain.MethodGet, SuccessCodes: []int{200}, TimeoutSeconds: 1}
}

func TestRedisStore_Create(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := New(db)
	c := sample()
	doc, _ := json.Marshal(c)

	mock.ExpectSetNX("check:c1", doc, 0).SetVal(true)
	require.NoError(t, s.Create(context.Background(), c))

	mock.ExpectSetNX("check:c1", doc, 0).SetVal(false)
	err := s.Create(context.Background(), c)
	assert.True(t, errors.Is(err, repo.ErrExists))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_ReadUpdate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := New(db)
	c := sample()
	doc, _ := json.Marshal(c)

	mock.ExpectGet("check:c1").SetVal(string(doc))
	got, err := s.Read(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, c.URL, got.URL)

	mock.ExpectGet("check:nope").RedisNil()
	_, err = s.Read(context.Background(), "nope")
	assert.True(t, errors.Is(err, repo.ErrNotFound))

	mock.ExpectGet("check:bad").SetVal("{")
	_, err = s.Read(context.Background(), "bad")
	assert.True(t, errors.Is(err, repo.ErrCorrupt))

	mock.ExpectSetXX("check:c1", doc, 0).SetVal(false)
	err = s.Update(context.Background(), c)
	assert.True(t, errors.Is(err, repo.ErrNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_ListAndRemove(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := New(db)

	mock.ExpectScan(0, "check:*", 100).SetVal([]string{"check:b"}, 7)
	mock.ExpectScan(7, "check:*", 100).SetVal([]string{"check:a"}, 0)
	ids, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.CheckID{"a", "b"}, ids)

	mock.ExpectDel("check:a").SetVal(0)
	assert.True(t, errors.Is(s.Remove(context.Background(), "a"), repo.ErrNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}
