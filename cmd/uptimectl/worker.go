package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hamed0406/uptimeworker/internal/config"
	"github.com/hamed0406/uptimeworker/internal/logbook"
	"github.com/hamed0406/uptimeworker/internal/monitor"
)

var (
	errWorkerBusy    = errors.New("worker is already running that cycle")
	errWorkerStopped = errors.New("worker is shutting down")
)

// workerClient drives cycles through the running worker, so they share its
// in-progress guards, its log locks and its alert senders.
type workerClient struct {
	base string
	key  string
	http *http.Client
	poll time.Duration
}

type lastCycles struct {
	Gather   *monitor.CycleReport    `json:"gather"`
	Rotation *logbook.RotationReport `json:"rotation"`
}

// newWorkerClient targets API_BASE when set, otherwise the worker's own ADDR.
func newWorkerClient(cfg config.Config, base, key string) *workerClient {
	if base == "" {
		base = cfg.Addr
		if strings.HasPrefix(base, ":") {
			base = "localhost" + base
		}
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if key == "" && len(cfg.API.AdminKeys) > 0 {
		key = cfg.API.AdminKeys[0]
	}
	return &workerClient{
		base: strings.TrimRight(base, "/"),
		key:  key,
		http: &http.Client{Timeout: 10 * time.Second},
		poll: 500 * time.Millisecond,
	}
}

func (w *workerClient) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, w.base+path, nil)
	if err != nil {
		return nil, err
	}
	if w.key != "" {
		req.Header.Set("Authorization", "Bearer "+w.key)
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contacting worker at %s: %w", w.base, err)
	}
	return resp, nil
}

func (w *workerClient) trigger(ctx context.Context, cycle string) error {
	resp, err := w.do(ctx, http.MethodPost, "/api/cycles/"+cycle)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil
	case http.StatusConflict:
		return errWorkerBusy
	case http.StatusServiceUnavailable:
		return errWorkerStopped
	default:
		return fmt.Errorf("worker returned %s: %s", resp.Status, apiError(resp.Body))
	}
}

func (w *workerClient) last(ctx context.Context) (lastCycles, error) {
	resp, err := w.do(ctx, http.MethodGet, "/api/cycles/last")
	if err != nil {
		return lastCycles{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return lastCycles{}, fmt.Errorf("worker returned %s: %s", resp.Status, apiError(resp.Body))
	}
	var out lastCycles
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return lastCycles{}, fmt.Errorf("decoding last cycles: %w", err)
	}
	return out, nil
}

// gather triggers a gather cycle and, unless wait is zero, returns its report
// once the worker publishes it.
func (w *workerClient) gather(ctx context.Context, wait time.Duration) (*monitor.CycleReport, error) {
	before, err := w.last(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.trigger(ctx, "gather"); err != nil {
		return nil, err
	}
	if wait <= 0 {
		return nil, nil
	}
	var prevID string
	if before.Gather != nil {
		prevID = before.Gather.ID
	}
	lc, err := w.await(ctx, wait, func(lc lastCycles) bool {
		return lc.Gather != nil && lc.Gather.ID != prevID
	})
	if err != nil {
		return nil, err
	}
	return lc.Gather, nil
}

func (w *workerClient) rotate(ctx context.Context, wait time.Duration) (*logbook.RotationReport, error) {
	before, err := w.last(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.trigger(ctx, "rotate"); err != nil {
		return nil, err
	}
	if wait <= 0 {
		return nil, nil
	}
	var prev time.Time
	if before.Rotation != nil {
		prev = before.Rotation.StartedAt
	}
	lc, err := w.await(ctx, wait, func(lc lastCycles) bool {
		return lc.Rotation != nil && !lc.Rotation.StartedAt.Equal(prev)
	})
	if err != nil {
		return nil, err
	}
	return lc.Rotation, nil
}

func (w *workerClient) await(ctx context.Context, wait time.Duration, done func(lastCycles) bool) (lastCycles, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	t := time.NewTicker(w.poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return lastCycles{}, fmt.Errorf("cycle still running after %s", wait)
		case <-t.C:
		}
		lc, err := w.last(ctx)
		if err != nil {
			return lastCycles{}, err
		}
		if done(lc) {
			return lc, nil
		}
	}
}

func apiError(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	b, _ := io.ReadAll(io.LimitReader(r, 4<<10))
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(b))
}
