// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package supabase

import (
	"context"
	"fmt"

	"github.com/nedpals/supabase-go"

	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
)

type ClientInterface interface {
	VerifyToken(ctx context.Context, accessToken string) (string, error)
	AssignOrganization(ctx context.Context, userID, orgID string) error
}

var _ ClientInterface = (*Client)(nil)

// Client talks to the Supabase Auth API with the service role key.
type Client struct {
	client *supabase.Client

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// VerifyToken presents the access token to Supabase Auth and returns the user id it belongs to.
func (c *Client) VerifyToken(ctx context.Context, accessToken string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "supabase.Client.VerifyToken")
	defer span.End()

	user, err := c.client.Auth.User(ctx, accessToken)
	if err != nil {
		return "", fmt.Errorf("failed to verify session: %w", err)
	}

	if user == nil || user.ID == "" {
		return "", fmt.Errorf("session has no user")
	}

	return user.ID, nil
}

// AssignOrganization records the organization on the auth user's app metadata.
func (c *Client) AssignOrganization(ctx context.Context, userID, orgID string) error {
	ctx, span := c.tracer.Start(ctx, "supabase.Client.AssignOrganization")
	defer span.End()

	_, err := c.client.Admin.UpdateUser(ctx, userID, supabase.AdminUserParams{
		AppMetadata: map[string]interface{}{"org_id": orgID},
	})
	c.reportAvailability(err)
	if err != nil {
		return fmt.Errorf("failed to assign organization to user %s: %w", userID, err)
	}

	return nil
}

func (c *Client) reportAvailability(err error) {
	available := 1.0
	if err != nil {
		available = 0
	}
	if mErr := c.monitor.SetDependencyAvailability(map[string]string{"component": "supabase"}, available); mErr != nil {
		c.logger.Debugf("failed to set supabase availability: %v", mErr)
	}
}

func NewClient(url, serviceKey string, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Client {
	c := new(Client)
	c.client = supabase.CreateClient(url, serviceKey)

	c.tracer = tracer
	c.monitor = monitor
	c.logger = logger

	return c
}
