// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package session

import "context"

type State int

const (
	Unauthenticated State = iota
	Authenticated
	// Service is a server-to-server caller acting for an explicit tenant slug.
	Service
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Service:
		return "service"
	}
	return "unauthenticated"
}

// Session is the resolved identity of a request.
type Session struct {
	State       State
	UserID      string
	AccessToken string
	// TenantSlug is only set for Service sessions.
	TenantSlug string
}

func (s Session) IsAuthenticated() bool {
	return s.State != Unauthenticated
}

type contextKey struct{}

var sessionContextKey = contextKey{}

// WithSession returns a new context carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// FromContext returns the session stored by the middleware, or an unauthenticated one.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(sessionContextKey).(Session); ok {
		return s
	}
	return Session{State: Unauthenticated}
}
