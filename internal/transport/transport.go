// Package transport performs single network attempts. Retry policy
// lives entirely in the queue and dispatch pool; a Sender does exactly
// one request and classifies the result.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/telhawk-beacon/internal/codec"
)

// Class partitions attempt results by how the pipeline must react.
type Class int

const (
	// ClassOK: the collector accepted the payload.
	ClassOK Class = iota

	// ClassTransient: network error, timeout, or 5xx. Retriable.
	ClassTransient

	// ClassPermanent: 4xx. The collector rejected the payload;
	// retrying an invalid request cannot succeed.
	ClassPermanent
)

func (c Class) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Result is the outcome of one attempt.
type Result struct {
	Class      Class
	StatusCode int           // 0 when the request never reached the server
	Latency    time.Duration // server round-trip, when the attempt completed
	Err        error         // underlying error for transient network failures
}

// Sender issues one attempt per call.
type Sender interface {
	Send(ctx context.Context, payload codec.Payload, endpoint string) Result
}

// HTTPSender posts payloads to the collector. Each attempt carries the
// client timeout; a timed-out attempt resolves as transient.
type HTTPSender struct {
	client      *http.Client
	correlation bool
}

// NewHTTPSender constructs a sender with a per-attempt timeout.
// correlation attaches an X-Beacon-Correlation header per request.
func NewHTTPSender(timeout time.Duration, correlation bool) *HTTPSender {
	return &HTTPSender{
		client:      &http.Client{Timeout: timeout},
		correlation: correlation,
	}
}

// Send implements Sender.
func (s *HTTPSender) Send(ctx context.Context, payload codec.Payload, endpoint string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Body))
	if err != nil {
		// A malformed endpoint cannot be fixed by retrying.
		return Result{Class: ClassPermanent, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if s.correlation {
		req.Header.Set("X-Beacon-Correlation", uuid.New().String())
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return Result{Class: ClassTransient, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	latency := time.Since(start)
	return Result{
		Class:      classify(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Latency:    latency,
	}
}

// classify maps an HTTP status class to a pipeline reaction.
func classify(status int) Class {
	switch {
	case status >= 200 && status < 300:
		return ClassOK
	case status >= 400 && status < 500:
		return ClassPermanent
	default:
		return ClassTransient
	}
}

// Ping issues a liveness probe against the given URL. Used by the boot
// sequence; outcome is advisory only.
func (s *HTTPSender) Ping(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ping status %d", resp.StatusCode)
	}
	return nil
}
