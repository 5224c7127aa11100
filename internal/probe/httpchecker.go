package probe

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

// HTTPChecker probes http/https checks. Redirects are not followed, so a 3xx
// is reported as the response code.
type HTTPChecker struct {
	Client *http.Client
	// Diagnose, when set, is consulted on network errors and its result is
	// appended to the error detail.
	Diagnose func(ctx context.Context, host string) string
}

func NewHTTPChecker() *HTTPChecker {
	return &HTTPChecker{
		Client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// WithDNSDiagnostics enables DNS classification on network failures.
func (h *HTTPChecker) WithDNSDiagnostics() *HTTPChecker {
	h.Diagnose = func(ctx context.Context, host string) string {
		return CheckDNS(ctx, host).Class
	}
	return h
}

type response struct {
	code int
	err  error
}

func (h *HTTPChecker) Probe(ctx context.Context, c domain.Check) domain.Outcome {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(string(c.Method)), c.Target(), nil)
	if err != nil {
		return domain.NetworkOutcome(err.Error(), time.Since(start))
	}

	// Buffered so the request goroutine never blocks once the timeout has won.
	done := make(chan response, 1)
	go func() {
		resp, err := h.Client.Do(req)
		if err != nil {
			done <- response{err: err}
			return
		}
		// The outcome is settled by the headers; a slow body must not turn it
		// into a timeout. The drain ends when Probe returns and cancels ctx.
		done <- response{code: resp.StatusCode}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
	}()

	// Whichever of response, transport error or deadline arrives first decides
	// the outcome; the others are dropped.
	select {
	case r := <-done:
		if r.err == nil {
			return domain.ResponseOutcome(r.code, time.Since(start))
		}
		if isTimeout(r.err) {
			return domain.TimeoutOutcome(time.Since(start))
		}
		return domain.NetworkOutcome(h.detail(req.URL, r.err), time.Since(start))
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return domain.NetworkOutcome("probe canceled", time.Since(start))
		}
		return domain.TimeoutOutcome(time.Since(start))
	}
}

func (h *HTTPChecker) detail(u *url.URL, err error) string {
	msg := err.Error()
	var uerr *url.Error
	if errors.As(err, &uerr) {
		msg = uerr.Err.Error()
	}
	if h.Diagnose == nil {
		return msg
	}
	ctx, cancel := context.WithTimeout(context.Background(), dnsTimeout)
	defer cancel()
	if class := h.Diagnose(ctx, u.Hostname()); class != "" {
		msg += " dns=" + class
	}
	return msg
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
