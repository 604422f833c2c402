// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package idempotency

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/canonical/academy-ledger/internal/logging"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.data[key] = value.(string)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	delete(f.data, key)
	return nil
}

func (f *fakeStore) Key(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func countingHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, *calls)
	})
}

func doRequest(h http.Handler, key, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	if key != "" {
		r.Header.Set(HeaderKey, key)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestReplayReturnsRecordedResponse(t *testing.T) {
	calls := 0
	mdw := NewMiddleware(newFakeStore(), time.Hour, func(*http.Request) string { return "org-1" }, logging.NewNoopLogger())
	h := mdw.Replay(countingHandler(&calls))

	first := doRequest(h, "abc", `{"amount":1}`)
	second := doRequest(h, "abc", `{"amount":1}`)

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}

	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Fatalf("expected replayed response %q, got %d %q", first.Body.String(), second.Code, second.Body.String())
	}

	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected replay header")
	}
}

func TestReplayRejectsDifferentBody(t *testing.T) {
	calls := 0
	mdw := NewMiddleware(newFakeStore(), time.Hour, nil, logging.NewNoopLogger())
	h := mdw.Replay(countingHandler(&calls))

	doRequest(h, "abc", `{"amount":1}`)
	w := doRequest(h, "abc", `{"amount":2}`)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
	}

	if !strings.Contains(w.Body.String(), "IDEMPOTENCY_CONFLICT") {
		t.Fatalf("expected IDEMPOTENCY_CONFLICT code, got %s", w.Body.String())
	}
}

func TestReplayPassThrough(t *testing.T) {
	tests := []struct {
		name  string
		store StoreInterface
		key   string
	}{
		{"no header", newFakeStore(), ""},
		{"no store", nil, "abc"},
		{"store unavailable", &fakeStore{data: map[string]string{}, err: fmt.Errorf("connection refused")}, "abc"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			calls := 0
			h := NewMiddleware(test.store, time.Hour, nil, logging.NewNoopLogger()).Replay(countingHandler(&calls))

			doRequest(h, test.key, `{}`)
			doRequest(h, test.key, `{}`)

			if calls != 2 {
				t.Fatalf("expected handler to run twice, ran %d times", calls)
			}
		})
	}
}

func TestReplayScopesKeysByCaller(t *testing.T) {
	calls := 0
	tenant := "org-1"
	mdw := NewMiddleware(newFakeStore(), time.Hour, func(*http.Request) string { return tenant }, logging.NewNoopLogger())
	h := mdw.Replay(countingHandler(&calls))

	doRequest(h, "abc", `{}`)
	tenant = "org-2"
	doRequest(h, "abc", `{}`)

	if calls != 2 {
		t.Fatalf("expected separate tenants not to share keys, handler ran %d times", calls)
	}
}

func TestReplayIgnoresSafeMethods(t *testing.T) {
	calls := 0
	h := NewMiddleware(newFakeStore(), time.Hour, nil, logging.NewNoopLogger()).Replay(countingHandler(&calls))

	for range 2 {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil)
		r.Header.Set(HeaderKey, "abc")
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	if calls != 2 {
		t.Fatalf("expected GET requests to bypass replay, handler ran %d times", calls)
	}
}

func TestReplayRejectsConcurrentDuplicate(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})

	h := NewMiddleware(newFakeStore(), time.Hour, nil, logging.NewNoopLogger()).Replay(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			close(entered)
			<-release
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"payment-1"}`))
		}),
	)

	var wg sync.WaitGroup
	var first *httptest.ResponseRecorder

	wg.Add(1)
	go func() {
		defer wg.Done()
		first = doRequest(h, "abc", `{"amount":1}`)
	}()

	<-entered

	duplicate := doRequest(h, "abc", `{"amount":1}`)
	if duplicate.Code != http.StatusConflict {
		t.Fatalf("expected status %d while the first request is in flight, got %d", http.StatusConflict, duplicate.Code)
	}
	if duplicate.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After on in flight duplicate")
	}
	if !strings.Contains(duplicate.Body.String(), "IDEMPOTENCY_CONFLICT") {
		t.Fatalf("expected IDEMPOTENCY_CONFLICT code, got %s", duplicate.Body.String())
	}

	close(release)
	wg.Wait()

	replayed := doRequest(h, "abc", `{"amount":1}`)

	if calls.Load() != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls.Load())
	}

	if first.Code != http.StatusCreated || replayed.Code != http.StatusCreated || replayed.Body.String() != first.Body.String() {
		t.Fatalf("expected replay of %d %q, got %d %q", first.Code, first.Body.String(), replayed.Code, replayed.Body.String())
	}
}

func TestReplayReleasesKeyOnServerError(t *testing.T) {
	calls := 0
	store := newFakeStore()
	h := NewMiddleware(store, time.Hour, nil, logging.NewNoopLogger()).Replay(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}),
	)

	if w := doRequest(h, "abc", `{}`); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected first attempt to fail, got %d", w.Code)
	}

	if w := doRequest(h, "abc", `{}`); w.Code != http.StatusCreated {
		t.Fatalf("expected retry to reach the handler, got %d", w.Code)
	}

	if calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", calls)
	}
}
