// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/bookshelf/internal/logging"
	"github.com/tomtom215/bookshelf/internal/metrics"
)

// maxRemoteFileSize bounds a single downloaded file.
const maxRemoteFileSize = 1 << 30

// HTTPSource downloads dataset files from a base URL. Downloads go through
// a circuit breaker so a failing origin is not hammered by periodic reloads.
type HTTPSource struct {
	base   *url.URL
	client *http.Client
	cb     *gobreaker.CircuitBreaker[[]byte]
	name   string
}

// NewHTTPSource creates a source for files under baseURL.
// Circuit breaker configuration:
//   - 1 probe request in half-open state
//   - opens after 3 consecutive failures
//   - 1 minute before attempting recovery
func NewHTTPSource(baseURL string, timeout time.Duration) (*HTTPSource, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse dataset base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("dataset base url must be http or https, got %q", base.Scheme)
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	cbName := "dataset-http"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// A missing optional file is an answer, not an origin failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, fs.ErrNotExist)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", stateToString(from)).Str("to", stateToString(to)).Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
	})

	return &HTTPSource{
		base:   base,
		client: &http.Client{Timeout: timeout},
		cb:     cb,
		name:   cbName,
	}, nil
}

// Open implements Source. The whole file is downloaded before returning.
func (s *HTTPSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	target := s.base.JoinPath(name)

	data, err := s.cb.Execute(func() ([]byte, error) {
		return s.fetch(ctx, target.String())
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(s.name, "rejected").Inc()
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(s.name, "failure").Inc()
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}

	metrics.CircuitBreakerRequests.WithLabelValues(s.name, "success").Inc()
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *HTTPSource) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", target, fs.ErrNotExist)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s: unexpected status %d", target, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	if len(data) > maxRemoteFileSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", target, maxRemoteFileSize)
	}
	return data, nil
}

// State returns the circuit breaker state.
func (s *HTTPSource) State() gobreaker.State {
	return s.cb.State()
}

func (s *HTTPSource) String() string {
	return "url:" + s.base.Redacted()
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
