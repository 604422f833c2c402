// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	httptypes "github.com/canonical/academy-ledger/internal/http/types"
	"github.com/canonical/academy-ledger/internal/idempotency"
	"github.com/canonical/academy-ledger/internal/identity"
)

type ledgerClient struct {
	endpoint   string
	token      string
	serviceKey string
	tenant     string

	http *http.Client
}

func newLedgerClient() *ledgerClient {
	e := endpoint
	if !strings.HasPrefix(e, "http") {
		e = "http://" + e
	}

	return &ledgerClient{
		endpoint:   strings.TrimSuffix(e, "/"),
		token:      accessToken,
		serviceKey: serviceKey,
		tenant:     tenantSlug,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

// do sends the request and decodes a successful body into out.
// Mutating requests carry a fresh Idempotency-Key.
func (c *ledgerClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.serviceKey != "" {
		req.Header.Set(identity.ServiceKeyHeader, c.serviceKey)
		if c.tenant != "" {
			req.Header.Set(identity.TenantSlugHeader, c.tenant)
		}
	}
	if method != http.MethodGet {
		req.Header.Set(idempotency.HeaderKey, uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := new(httptypes.ErrorResponse)
		if err := json.Unmarshal(payload, apiErr); err != nil || apiErr.Error.Code == "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(payload))
		}
		return fmt.Errorf("api error %s (status %d): %s", apiErr.Error.Code, resp.StatusCode, apiErr.Error.Message)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
