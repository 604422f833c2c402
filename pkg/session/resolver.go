// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/canonical/academy-ledger/internal/identity"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
)

var _ ResolverInterface = (*Resolver)(nil)

// Resolver turns request credentials into a Session. It never fails: any
// problem with the credentials yields an unauthenticated session.
type Resolver struct {
	serviceKey *identity.ServiceKey
	verifiers  []TokenVerifierInterface
	now        func() time.Time

	// skipVerification accepts locally decoded tokens when no verifier is
	// configured. Development only.
	skipVerification bool

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (s *Resolver) Resolve(r *http.Request) Session {
	ctx, span := s.tracer.Start(r.Context(), "session.Resolver.Resolve")
	defer span.End()

	if slug, ok := s.serviceKey.TenantSlug(r); ok {
		return Session{State: Service, UserID: identity.ServiceActorID, TenantSlug: slug}
	}

	token, ok := bearerToken(r.Header)
	if !ok {
		token, ok = accessTokenFromCookies(r)
	}

	if !ok {
		return Session{State: Unauthenticated}
	}

	userID, err := decodeSubject(token, s.now())
	if err != nil {
		s.logger.Debugf("session token rejected: %v", err)
		s.logger.Security().AuthnFailure(err.Error())
		return Session{State: Unauthenticated}
	}

	if len(s.verifiers) == 0 && !s.skipVerification {
		s.logger.Security().AuthnFailure("no session verifier configured")
		return Session{State: Unauthenticated}
	}

	for _, v := range s.verifiers {
		subject, err := v.VerifyToken(ctx, token)
		if err != nil {
			s.logger.Debugf("session verification failed: %v", err)
			s.logger.Security().AuthnFailure("session verification failed")
			return Session{State: Unauthenticated}
		}

		if subject != userID {
			s.logger.Security().AuthnFailure("verified subject does not match token subject")
			return Session{State: Unauthenticated}
		}
	}

	return Session{State: Authenticated, UserID: userID, AccessToken: token}
}

func bearerToken(headers http.Header) (string, bool) {
	bearer := headers.Get("Authorization")
	if bearer == "" {
		return "", false
	}

	// Only support "Bearer <token>" format (RFC 6750)
	if !strings.HasPrefix(bearer, "Bearer ") {
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(bearer, "Bearer "))
	return token, token != ""
}

// NewResolver builds a resolver. Verifiers run in order after the local
// decode and must all agree on the subject. With no verifiers every token is
// rejected unless skipVerification is set.
func NewResolver(serviceKey *identity.ServiceKey, verifiers []TokenVerifierInterface, skipVerification bool, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Resolver {
	s := new(Resolver)

	s.serviceKey = serviceKey
	s.verifiers = verifiers
	s.skipVerification = skipVerification
	s.now = time.Now

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}
