// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/canonical/academy-ledger/internal/authorization"
	"github.com/canonical/academy-ledger/internal/config"
	"github.com/canonical/academy-ledger/internal/db"
	"github.com/canonical/academy-ledger/internal/idempotency"
	"github.com/canonical/academy-ledger/internal/identity"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring/prometheus"
	"github.com/canonical/academy-ledger/internal/storage"
	"github.com/canonical/academy-ledger/internal/supabase"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/pkg/audit"
	"github.com/canonical/academy-ledger/pkg/credit"
	"github.com/canonical/academy-ledger/pkg/payments"
	"github.com/canonical/academy-ledger/pkg/session"
	"github.com/canonical/academy-ledger/pkg/tenancy"
	"github.com/canonical/academy-ledger/pkg/web"
	"github.com/canonical/academy-ledger/pkg/webhooks"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve starts the web server",
	Long:  `Launch the web application, list of environment variables is available in the readme`,
	Run: func(cmd *cobra.Command, args []string) {
		main()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	specs := new(config.EnvSpec)
	if err := envconfig.Process("", specs); err != nil {
		panic(fmt.Errorf("issues with environment sourcing: %s", err))
	}

	logger := logging.NewLogger(specs.LogLevel)
	logger.Debugf("env vars: %v", specs)
	defer logger.Sync()

	monitor := prometheus.NewMonitor("academy-ledger", logger)
	tracer := tracing.NewTracer(tracing.NewConfig(specs.TracingEnabled, specs.OtelGRPCEndpoint, specs.OtelHTTPEndpoint, logger))

	dbConfig := db.Config{
		DSN:             specs.DSN,
		MaxConns:        specs.DBMaxConns,
		MinConns:        specs.DBMinConns,
		MaxConnLifetime: specs.DBMaxConnLifetime,
		MaxConnIdleTime: specs.DBMaxConnIdleTime,
		TracingEnabled:  specs.TracingEnabled,
	}
	dbClient, err := db.NewDBClient(dbConfig, tracer, monitor, logger)
	if err != nil {
		return fmt.Errorf("failed to create database client: %v", err)
	}
	defer dbClient.Close()
	s := storage.NewStorage(dbClient, tracer, monitor, logger)

	serviceKey := identity.NewServiceKey(specs.ServiceKey)
	if specs.ServiceKey == "" {
		logger.Info("Service key not set, server-to-server calls are disabled")
	}

	verifiers := make([]session.TokenVerifierInterface, 0, 2)
	if specs.JWTIssuer != "" {
		verifier, err := session.NewJWTAuthenticator(context.Background(), specs.JWTIssuer, specs.JWTJWKSURL, tracer, monitor, logger)
		if err != nil {
			return fmt.Errorf("failed to create JWT authenticator: %v", err)
		}
		verifiers = append(verifiers, verifier)
	}

	var idp webhooks.IdentityProviderInterface
	if specs.SupabaseURL != "" {
		supabaseClient := supabase.NewClient(specs.SupabaseURL, specs.SupabaseServiceKey, tracer, monitor, logger)
		idp = supabaseClient

		if specs.SupabaseVerifySessions {
			verifiers = append(verifiers, supabaseClient)
		}
	}

	if err := checkVerifiers(len(verifiers), specs.InsecureSkipTokenVerification); err != nil {
		return err
	}

	if specs.InsecureSkipTokenVerification {
		logger.Warn("INSECURE_SKIP_TOKEN_VERIFICATION is set, session tokens are decoded without signature verification")
	}

	var idempotencyStore idempotency.StoreInterface
	if specs.RedisURL != "" {
		redisStore, err := idempotency.NewRedisStore(specs.RedisURL, tracer, monitor, logger)
		if err != nil {
			return fmt.Errorf("failed to create idempotency store: %v", err)
		}
		defer redisStore.Close()
		idempotencyStore = redisStore
	} else {
		logger.Info("Redis not configured, idempotency keys are ignored")
	}

	recorder := audit.NewRecorder(s, specs.AuditWriteTimeout, tracer, monitor, logger)
	defer recorder.Close()

	authorizer := authorization.NewAuthorizer(tracer, monitor, logger)

	paymentService := payments.NewService(s, dbClient, authorizer, recorder, tracer, monitor, logger)
	creditService := credit.NewService(s, dbClient, recorder, tracer, monitor, logger)
	auditService := audit.NewService(s, tracer, monitor, logger)
	webhookService := webhooks.NewService(s, idp, recorder, tracer, monitor, logger)

	router := web.NewRouter(
		web.Dependencies{
			DB:               dbClient,
			ServiceKey:       serviceKey,
			Sessions:         session.NewResolver(serviceKey, verifiers, specs.InsecureSkipTokenVerification, tracer, monitor, logger),
			Tenants:          tenancy.NewResolver(s, tracer, monitor, logger),
			IdempotencyStore: idempotencyStore,
			IdempotencyTTL:   specs.IdempotencyTTL,
			CORSOrigins:      specs.CORSAllowedOrigins,
			Payments:         payments.NewAPI(paymentService, tracer, monitor, logger),
			Credit:           credit.NewAPI(creditService, tracer, monitor, logger),
			Audit:            audit.NewAPI(auditService, tracer, monitor, logger),
			Webhooks:         webhooks.NewAPI(webhookService, logger),
		},
		tracer,
		monitor,
		logger,
	)
	logger.Infof("Starting HTTP server on port %v", specs.Port)

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%v", specs.Port),
		WriteTimeout: time.Second * 60,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	var serverError error
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Security().SystemStartup()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError = fmt.Errorf("server error: %w", err)
			c <- os.Interrupt
		}
	}()

	<-c

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Security().SystemShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		serverError = fmt.Errorf("server shutdown error: %w", err)
	}

	return serverError
}

// checkVerifiers refuses to serve tenant routes when nothing can verify a
// session token.
func checkVerifiers(configured int, skipVerification bool) error {
	if configured == 0 && !skipVerification {
		return errors.New("no session token verifier configured: set JWT_ISSUER or SUPABASE_URL, or INSECURE_SKIP_TOKEN_VERIFICATION for local development")
	}

	return nil
}

func main() {
	if err := serve(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}
