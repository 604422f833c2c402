// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	ierr "github.com/canonical/academy-ledger/internal/errors"
	httptypes "github.com/canonical/academy-ledger/internal/http/types"
	"github.com/canonical/academy-ledger/internal/logging"
)

const (
	HeaderKey = "Idempotency-Key"

	// pendingTTL bounds how long a crashed request can hold its key.
	pendingTTL = 2 * time.Minute
)

type record struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	Body        string `json:"body,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	RequestHash string `json:"request_hash"`
}

// ScopeFunc returns the caller identity the key is namespaced under.
type ScopeFunc func(*http.Request) string

type Middleware struct {
	store StoreInterface
	ttl   time.Duration
	scope ScopeFunc

	logger logging.LoggerInterface
}

// Replay answers a repeated request carrying the same Idempotency-Key with the
// recorded response. Safe methods, requests without the header, or a nil
// store pass through.
// The key is reserved before the handler runs, so a duplicate arriving while
// the first request is in flight gets IDEMPOTENCY_CONFLICT with Retry-After.
// A key reused with a different body is rejected with IDEMPOTENCY_CONFLICT.
func (m *Middleware) Replay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderKey))
		if m.store == nil || id == "" || !mutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			httptypes.WriteError(w, ierr.WithError(err).WithHint("Invalid request body").Mark(ierr.ErrValidation), m.logger)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		requestHash := hashBody(body)
		key := m.store.Key(m.scope(r)+"|"+r.Method+"|"+r.URL.Path, id)

		reserved, err := m.reserve(r.Context(), key, requestHash)
		if err != nil {
			// replay protection is lost, the request still goes through
			m.logger.Errorw("failed to reserve idempotency key", "error", err, "key", key)
			next.ServeHTTP(w, r)
			return
		}

		if !reserved {
			m.answerDuplicate(w, r, key, requestHash, next)
			return
		}

		capture := &responseCapture{ResponseWriter: w}
		next.ServeHTTP(capture, r)

		// the response is already sent, the record must outlive the request
		ctx := context.WithoutCancel(r.Context())

		status := capture.statusCode()
		if status >= http.StatusInternalServerError {
			m.release(ctx, key)
			return
		}

		payload, err := json.Marshal(record{
			Status:      status,
			Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
			ContentType: capture.Header().Get("Content-Type"),
			RequestHash: requestHash,
		})
		if err != nil {
			m.logger.Errorw("failed to encode idempotency record", "error", err)
			m.release(ctx, key)
			return
		}

		if err := m.store.Set(ctx, key, string(payload), m.ttl); err != nil {
			m.logger.Errorw("failed to persist idempotency record", "error", err, "key", key)
		}
	})
}

func (m *Middleware) reserve(ctx context.Context, key, requestHash string) (bool, error) {
	marker, err := json.Marshal(record{Pending: true, RequestHash: requestHash})
	if err != nil {
		return false, err
	}

	return m.store.SetNX(ctx, key, string(marker), min(pendingTTL, m.ttl))
}

func (m *Middleware) release(ctx context.Context, key string) {
	if err := m.store.Delete(ctx, key); err != nil {
		m.logger.Errorw("failed to release idempotency key", "error", err, "key", key)
	}
}

func (m *Middleware) answerDuplicate(w http.ResponseWriter, r *http.Request, key, requestHash string, next http.Handler) {
	stored, err := m.store.Get(r.Context(), key)
	switch {
	case errors.Is(err, redis.Nil):
		// released or expired between reserve and read
		writeInProgress(w, m.logger)
		return
	case err != nil:
		m.logger.Errorw("failed to read idempotency record", "error", err, "key", key)
		writeInProgress(w, m.logger)
		return
	}

	var rec record
	if err := json.Unmarshal([]byte(stored), &rec); err != nil {
		m.logger.Errorw("failed to decode idempotency record", "error", err, "key", key)
		next.ServeHTTP(w, r)
		return
	}

	if rec.RequestHash != requestHash {
		httptypes.WriteError(
			w,
			ierr.NewError("idempotency key reused").WithHint("Idempotency-Key was already used with a different request").Mark(ierr.ErrIdempotencyConflict),
			m.logger,
		)
		return
	}

	if rec.Pending {
		writeInProgress(w, m.logger)
		return
	}

	writeRecord(w, &rec)
}

func writeInProgress(w http.ResponseWriter, logger logging.LoggerInterface) {
	w.Header().Set("Retry-After", "1")
	httptypes.WriteError(
		w,
		ierr.NewError("idempotency key in flight").WithHint("A request with this Idempotency-Key is still being processed, retry later").Mark(ierr.ErrIdempotencyConflict),
		logger,
	)
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func writeRecord(w http.ResponseWriter, rec *record) {
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(rec.Status)

	if decoded, err := base64.StdEncoding.DecodeString(rec.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// NewMiddleware returns a replay middleware. A nil store disables it.
func NewMiddleware(store StoreInterface, ttl time.Duration, scope ScopeFunc, logger logging.LoggerInterface) *Middleware {
	m := new(Middleware)
	m.store = store
	m.ttl = ttl
	m.scope = scope
	m.logger = logger

	if m.scope == nil {
		m.scope = func(*http.Request) string { return "" }
	}

	return m
}
