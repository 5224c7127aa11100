package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo/memory"
)

const sample = `
checks:
  - owner_id: "7700900123"
    protocol: HTTPS
    url: example.com/health
    method: GET
    success_codes: [200, 204]
    timeout_seconds: 3
  - id: fixedidfixedidfixedid1234
    owner_id: "7700900124"
    protocol: http
    url: example.org
    method: post
    success_codes: [201]
    timeout_seconds: 1
`

func TestParseChecks(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	checks, err := parseChecks(strings.NewReader(sample), domain.DefaultLimits(), now)
	require.NoError(t, err)
	require.Len(t, checks, 2)

	assert.Len(t, string(checks[0].ID), 25)
	assert.Equal(t, domain.ProtocolHTTPS, checks[0].Protocol)
	assert.Equal(t, domain.MethodGet, checks[0].Method)
	assert.Equal(t, []int{200, 204}, checks[0].SuccessCodes)
	assert.Equal(t, now, checks[0].CreatedAt)
	assert.False(t, checks[0].Evaluated())

	assert.Equal(t, domain.CheckID("fixedidfixedidfixedid1234"), checks[1].ID)
}

func TestParseChecks_RejectsInvalid(t *testing.T) {
	bad := strings.Replace(sample, "timeout_seconds: 3", "timeout_seconds: 30", 1)
	_, err := parseChecks(strings.NewReader(bad), domain.DefaultLimits(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check #1")

	_, err = parseChecks(strings.NewReader("checks:\n  - colour: red\n"), domain.DefaultLimits(), time.Now())
	assert.Error(t, err)
}

func TestNewCheckID(t *testing.T) {
	assert.Len(t, string(newCheckID(25)), 25)
	assert.Len(t, string(newCheckID(40)), 40)
	assert.NotEqual(t, newCheckID(25), newCheckID(25))
}

func TestListChecks(t *testing.T) {
	store := memory.New()
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Create(context.Background(), domain.Check{
		ID: "c1", Protocol: domain.ProtocolHTTP, URL: "example.com", Method: domain.MethodGet,
		State: domain.StateUp, LastCheckedAt: &at,
	}))
	require.NoError(t, store.Create(context.Background(), domain.Check{
		ID: "c2", Protocol: domain.ProtocolHTTPS, URL: "example.org", Method: domain.MethodPut,
	}))

	var out bytes.Buffer
	require.NoError(t, listChecks(context.Background(), &out, store))
	s := out.String()
	assert.Contains(t, s, "http://example.com")
	assert.Contains(t, s, "2024-06-01T12:00:00Z")
	assert.Contains(t, s, "never")
	assert.Contains(t, s, "PUT")
}
