package main

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingStop struct{ calls int32 }

func (c *countingStop) Stop(ctx context.Context) error {
	atomic.AddInt32(&c.calls, 1)
	return nil
}

func TestServe_ListenFailureIsReturned(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	srv := &http.Server{Addr: busy.Addr().String(), Handler: http.NotFoundHandler()}
	stop := &countingStop{}

	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), zap.NewNop(), srv, stop) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), busy.Addr().String())
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after the listener failed")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&stop.calls))
}

func TestServe_SignalShutsDownCleanly(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	stop := &countingStop{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, zap.NewNop(), srv, stop) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&stop.calls))
}
