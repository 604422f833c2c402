// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package identity

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const (
	// ServiceKeyHeader carries the shared secret of server-to-server callers.
	ServiceKeyHeader = "X-Service-Key"
	// TenantSlugHeader names the tenant a service caller acts on behalf of.
	TenantSlugHeader = "X-Tenant-Slug"

	// ServiceActorID is recorded as the actor of writes made by service callers.
	ServiceActorID = "service"
)

// ServiceKey authenticates server-to-server callers with a shared secret.
// An empty key disables service authentication.
type ServiceKey struct {
	key []byte
}

// Valid reports whether r presents the configured service key.
func (s *ServiceKey) Valid(r *http.Request) bool {
	if s == nil || len(s.key) == 0 {
		return false
	}

	presented := r.Header.Get(ServiceKeyHeader)
	if presented == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(presented), s.key) == 1
}

// TenantSlug returns the tenant slug of an authenticated service call.
func (s *ServiceKey) TenantSlug(r *http.Request) (string, bool) {
	if !s.Valid(r) {
		return "", false
	}

	slug := strings.TrimSpace(r.Header.Get(TenantSlugHeader))
	return slug, slug != ""
}

func NewServiceKey(key string) *ServiceKey {
	return &ServiceKey{key: []byte(key)}
}
