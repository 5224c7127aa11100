package domain

import (
	"fmt"
	"strings"
	"time"
)

type CheckID string

// State is the binary health classification persisted per check.
// The zero value means the check has never been evaluated.
type State uint8

const (
	StateUnknown State = iota
	StateDown
	StateUp
)

func (s State) String() string {
	switch s {
	case StateUp:
		return "up"
	case StateDown:
		return "down"
	default:
		return ""
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "up":
		*s = StateUp
	case "down":
		*s = StateDown
	case "":
		*s = StateUnknown
	default:
		return fmt.Errorf("unknown state %q", string(b))
	}
	return nil
}

type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
)

type Method string

const (
	MethodGet    Method = "get"
	MethodPost   Method = "post"
	MethodPut    Method = "put"
	MethodDelete Method = "delete"
)

// Check is a user-defined endpoint plus the status codes that count as healthy.
// State and LastCheckedAt are written only by the monitoring engine.
type Check struct {
	ID             CheckID    `json:"id" yaml:"id"`
	OwnerID        string     `json:"userId" yaml:"owner_id"`
	Protocol       Protocol   `json:"protocol" yaml:"protocol"`
	URL            string     `json:"url" yaml:"url"`
	Method         Method     `json:"method" yaml:"method"`
	SuccessCodes   []int      `json:"successCodes" yaml:"success_codes"`
	TimeoutSeconds int        `json:"timeoutSeconds" yaml:"timeout_seconds"`
	State          State      `json:"state,omitempty" yaml:"-"`
	LastCheckedAt  *time.Time `json:"lastChecked,omitempty" yaml:"-"`
	CreatedAt      time.Time  `json:"createdAt,omitempty" yaml:"-"`
}

// Evaluated reports whether the engine has ever recorded a result for c.
func (c Check) Evaluated() bool {
	return c.LastCheckedAt != nil && !c.LastCheckedAt.IsZero()
}

func (c Check) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Target is the absolute URL probed for c.
func (c Check) Target() string {
	return string(c.Protocol) + "://" + c.URL
}

type ErrorKind string

const (
	NetworkError ErrorKind = "NetworkError"
	TimeoutError ErrorKind = "TimeoutError"
)

type ProbeError struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

func (e *ProbeError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Detail
}

// Outcome is the result of one probe. Exactly one of Error and ResponseCode is set;
// use the constructors to keep it that way.
type Outcome struct {
	Error        *ProbeError `json:"error,omitempty"`
	ResponseCode *int        `json:"responseCode,omitempty"`
	LatencyMS    float64     `json:"latencyMs"`
}

func ResponseOutcome(code int, latency time.Duration) Outcome {
	return Outcome{ResponseCode: &code, LatencyMS: ms(latency)}
}

func NetworkOutcome(detail string, latency time.Duration) Outcome {
	return Outcome{Error: &ProbeError{Kind: NetworkError, Detail: detail}, LatencyMS: ms(latency)}
}

func TimeoutOutcome(latency time.Duration) Outcome {
	return Outcome{Error: &ProbeError{Kind: TimeoutError}, LatencyMS: ms(latency)}
}

func (o Outcome) Code() (int, bool) {
	if o.ResponseCode == nil {
		return 0, false
	}
	return *o.ResponseCode, true
}

func ms(d time.Duration) float64 { return d.Seconds() * 1000 }

// LogRecord is one line of a check's outcome log.
type LogRecord struct {
	Check         Check     `json:"check"`
	Outcome       Outcome   `json:"outcome"`
	State         State     `json:"state"`
	AlertRequired bool      `json:"alert"`
	Time          time.Time `json:"time"`
}
