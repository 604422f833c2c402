// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/canonical/academy-ledger/internal/identity"
	"github.com/canonical/academy-ledger/pkg/webhooks"
)

// devToken mints a session token. The server under test runs without a
// verifier and only decodes the subject and expiry.
func devToken(t *testing.T, subject string) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("e2e"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	return token
}

func call(t *testing.T, method, path string, body any, headers map[string]string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, testEnv.BaseURL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	return resp.StatusCode, raw
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("failed to decode %s: %v", string(raw), err)
	}

	return out
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed to decode error %s: %v", string(raw), err)
	}

	return body.Error.Code
}

// signup provisions a new academy through the auth webhook and returns the
// organization ID and the owner's profile ID.
func signup(t *testing.T, orgName string) (string, string) {
	t.Helper()

	userID := uuid.NewString()
	status, raw := call(t, http.MethodPost, "/webhooks/signup", webhooks.SignupRequest{
		ID:      userID,
		Email:   fmt.Sprintf("%s@example.com", userID[:8]),
		Name:    "Owner",
		OrgName: orgName,
	}, map[string]string{identity.ServiceKeyHeader: testServiceKey})
	if status != http.StatusCreated {
		t.Fatalf("signup: expected status %d, got %d: %s", http.StatusCreated, status, string(raw))
	}

	resp := decode[webhooks.SignupResponse](t, raw)
	return resp.Organization.ID, resp.Profile.ID
}

func seedProfile(t *testing.T, orgID *string, role string) string {
	t.Helper()

	id := uuid.NewString()
	_, err := testEnv.DB.Exec(
		`INSERT INTO profiles (id, email, name, role, org_id) VALUES ($1, $2, $3, $4, $5)`,
		id, id[:8]+"@example.com", role, role, orgID,
	)
	if err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}

	return id
}

func seedStudent(t *testing.T, orgID, name string) string {
	t.Helper()

	id := uuid.NewString()
	if _, err := testEnv.DB.Exec(`INSERT INTO students (id, org_id, name) VALUES ($1, $2, $3)`, id, orgID, name); err != nil {
		t.Fatalf("failed to seed student: %v", err)
	}

	return id
}

func studentBalances(t *testing.T, id string) (float64, int64) {
	t.Helper()

	var (
		hours   float64
		minutes int64
	)
	if err := testEnv.DB.QueryRow(`SELECT credit_hours, remaining_minutes FROM students WHERE id = $1`, id).Scan(&hours, &minutes); err != nil {
		t.Fatalf("failed to read student: %v", err)
	}

	return hours, minutes
}
