// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package session

import (
	"context"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

type ProviderInterface interface {
	// Verifier returns the token verifier associated with the specified OIDC issuer
	Verifier(*oidc.Config) *oidc.IDTokenVerifier
}

type TokenVerifierInterface interface {
	// VerifyToken verifies a raw access token and returns its subject (user ID).
	VerifyToken(ctx context.Context, rawToken string) (string, error)
}

type ResolverInterface interface {
	Resolve(*http.Request) Session
}
