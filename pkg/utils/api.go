package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// APIError is a non-2xx response.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %d %s: %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), body)
}

// Retryable reports whether the request may succeed when repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Throttled reports a request rejected before the server acted on it.
func (e *APIError) Throttled() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

type API struct {
	client     *http.Client
	baseURL    string
	maxElapsed time.Duration
}

type Option func(*API)

// WithMaxElapsed bounds the total time spent retrying one request. Zero
// disables retries.
func WithMaxElapsed(d time.Duration) Option {
	return func(a *API) {
		a.maxElapsed = d
	}
}

func NewAPI(client *http.Client, baseURL string, opts ...Option) *API {
	if client == nil {
		client = http.DefaultClient
	}
	a := &API{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxElapsed: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) Get(ctx context.Context, path string, params url.Values, v any) error {
	_, err := a.Do(ctx, http.MethodGet, path, params, nil, v)
	return err
}

func (a *API) Post(ctx context.Context, path string, body any, v any) (http.Header, error) {
	return a.Do(ctx, http.MethodPost, path, nil, body, v)
}

func (a *API) Delete(ctx context.Context, path string) error {
	_, err := a.Do(ctx, http.MethodDelete, path, nil, nil, nil)
	return err
}

// Do sends a JSON request and decodes a JSON response into v when v is not nil
// and the response has a body. Transport errors, 429 and 5xx are retried with
// exponential backoff. POST is not idempotent and is only retried on 429.
func (a *API) Do(ctx context.Context, method, path string, params url.Values, body any, v any) (http.Header, error) {
	target := a.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
	}

	idempotent := method != http.MethodPost

	var header http.Header
	operation := func() error {
		h, err := a.once(ctx, method, target, path, payload, v)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			var apiErr *APIError
			isAPIErr := errors.As(err, &apiErr)
			switch {
			case isAPIErr && apiErr.Throttled():
				return err
			case !idempotent:
				return backoff.Permanent(err)
			case isAPIErr && !apiErr.Retryable():
				return backoff.Permanent(err)
			}
			return err
		}
		header = h
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("path", path).Dur("wait", wait).Msg("retrying request")
	}

	if a.maxElapsed <= 0 {
		if err := operation(); err != nil {
			var perm *backoff.PermanentError
			if errors.As(err, &perm) {
				return nil, perm.Err
			}
			return nil, err
		}
		return header, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxElapsedTime = a.maxElapsed

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, err
	}
	return header, nil
}

func (a *API) once(ctx context.Context, method, target, path string, payload []byte, v any) (http.Header, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Op: method + " " + path, StatusCode: resp.StatusCode, Body: string(b)}
	}

	if v == nil {
		return resp.Header, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return resp.Header, nil
		}
		return nil, fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return resp.Header, nil
}
