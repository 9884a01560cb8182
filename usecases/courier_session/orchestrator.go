package courier_session

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/deliveryrouting/courier-backend/models"
	"github.com/deliveryrouting/courier-backend/repositories/clock"
	"github.com/deliveryrouting/courier-backend/utils"
)

const (
	DefaultTokenTtl      = 24 * time.Hour
	DefaultRefreshMargin = time.Minute
	DefaultAuthTimeout   = 30 * time.Second
)

// AuthBackend performs the login exchange with the courier platform and returns the raw
// response body.
type AuthBackend interface {
	Authenticate(ctx context.Context, creds models.CourierCredentials) ([]byte, error)
}

type CredentialProvider interface {
	CredentialsFor(ctx context.Context, key models.AccountKey) (models.CourierCredentials, error)
}

// EnvCredentialProvider serves the single password configured for the deployment, for any account.
type EnvCredentialProvider struct {
	Password      string
	ValidityHours int
}

func (p EnvCredentialProvider) CredentialsFor(ctx context.Context, key models.AccountKey) (models.CourierCredentials, error) {
	if p.Password == "" {
		return models.CourierCredentials{}, errors.Wrapf(models.ErrMissingCourierPassword, "account %s", key)
	}
	return models.CourierCredentials{
		Key:           key,
		Password:      p.Password,
		ValidityHours: p.ValidityHours,
	}, nil
}

type OrchestratorConfig struct {
	TokenTtl time.Duration
	// A cached token is refreshed when it expires within this margin.
	RefreshMargin time.Duration
	AuthTimeout   time.Duration
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.TokenTtl <= 0 {
		c.TokenTtl = DefaultTokenTtl
	}
	if c.RefreshMargin < 0 {
		c.RefreshMargin = 0
	}
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = DefaultAuthTimeout
	}
	return c
}

type Orchestrator struct {
	cache     *CredentialCache
	extractor TokenExtractor
	backend   AuthBackend
	provider  CredentialProvider
	clock     clock.Clock
	config    OrchestratorConfig

	flights singleflight.Group
}

func NewOrchestrator(
	cache *CredentialCache,
	extractor TokenExtractor,
	backend AuthBackend,
	provider CredentialProvider,
	clk clock.Clock,
	config OrchestratorConfig,
) *Orchestrator {
	return &Orchestrator{
		cache:     cache,
		extractor: extractor,
		backend:   backend,
		provider:  provider,
		clock:     clk,
		config:    config.withDefaults(),
	}
}

// EnsureToken returns a session token for the account, from the cache when it is fresh
// enough, otherwise by logging in again. Concurrent callers needing a new token for the
// same account share a single login.
func (o *Orchestrator) EnsureToken(ctx context.Context, key models.AccountKey) (models.SessionTokenResult, error) {
	if err := key.Validate(); err != nil {
		return models.SessionTokenResult{}, err
	}

	tracer := utils.OpenTelemetryTracerFromContext(ctx)
	ctx, span := tracer.Start(
		ctx,
		"Orchestrator.EnsureToken",
		trace.WithAttributes(attribute.String("account", key.String())))
	defer span.End()

	o.evictExpired(ctx)

	token, found := o.cache.Get(key)
	switch {
	case found && o.isFresh(token):
		utils.MetricSessionCacheLookups.WithLabelValues("hit").Inc()
		span.SetAttributes(attribute.String("token_source", "cache"))
		return models.SessionTokenResult{Token: token}, nil
	case found:
		utils.MetricSessionCacheLookups.WithLabelValues("stale").Inc()
	default:
		utils.MetricSessionCacheLookups.WithLabelValues("miss").Inc()
	}

	result, err := o.coalesce(ctx, key,
		func(flightCtx context.Context) (flight, error) {
			// another flight may have completed between our lookup and this one starting
			if token, found := o.cache.Get(key); found && o.isFresh(token) {
				return flight{fromProvider: true, result: models.SessionTokenResult{Token: token}}, nil
			}
			creds, err := o.provider.CredentialsFor(flightCtx, key)
			if err != nil {
				return flight{fromProvider: true}, err
			}
			f, err := o.login(flightCtx, creds)
			f.fromProvider = true
			return f, err
		},
		// any token minted for the account will do, but the failure of a login made with
		// caller supplied credentials says nothing about the configured ones
		func(f flight, err error) bool {
			return f.fromProvider || err == nil
		})
	if err != nil {
		return models.SessionTokenResult{}, err
	}
	span.SetAttributes(attribute.String("token_source", result.Source()))
	return result, nil
}

// Authenticate always logs in with the given credentials and caches the resulting token.
// It only shares the outcome of a concurrent login made with the same credentials.
func (o *Orchestrator) Authenticate(ctx context.Context, creds models.CourierCredentials) (models.SessionTokenResult, error) {
	if err := creds.Validate(); err != nil {
		return models.SessionTokenResult{}, err
	}
	if creds.ValidityHours <= 0 {
		creds.ValidityHours = int(o.config.TokenTtl / time.Hour)
	}

	tracer := utils.OpenTelemetryTracerFromContext(ctx)
	ctx, span := tracer.Start(
		ctx,
		"Orchestrator.Authenticate",
		trace.WithAttributes(attribute.String("account", creds.Key.String())))
	defer span.End()

	return o.coalesce(ctx, creds.Key,
		func(flightCtx context.Context) (flight, error) {
			return o.login(flightCtx, creds)
		},
		func(f flight, err error) bool {
			return f.loggedIn && sameCredentials(f.creds, creds)
		})
}

// Invalidate forgets the rejected token of the account, so that the next EnsureToken logs in
// again. A token minted in the meantime is kept.
func (o *Orchestrator) Invalidate(ctx context.Context, key models.AccountKey, rejected string) {
	if !o.cache.Invalidate(key, rejected) {
		return
	}
	utils.LoggerFromContext(ctx).InfoContext(ctx, "invalidated cached courier session",
		slog.String("account", key.String()))
	utils.MetricSessionCacheEntries.Set(float64(o.cache.Len()))
}

func (o *Orchestrator) CachedSessions() int {
	return o.cache.Len()
}

func (o *Orchestrator) isFresh(token models.SessionToken) bool {
	return token.IsFreshAt(o.clock.Now().Add(o.config.RefreshMargin))
}

func (o *Orchestrator) evictExpired(ctx context.Context) {
	evicted := o.cache.EvictExpired()
	if evicted > 0 {
		utils.MetricSessionCacheEvictions.Add(float64(evicted))
		utils.LoggerFromContext(ctx).DebugContext(ctx, fmt.Sprintf("evicted %d expired courier sessions", evicted))
	}
	utils.MetricSessionCacheEntries.Set(float64(o.cache.Len()))
}

// flight is what a login flight hands to every caller waiting on it.
type flight struct {
	result models.SessionTokenResult
	// set when the flight called the backend, even if the login failed
	loggedIn bool
	creds    models.CourierCredentials
	// set when the credentials came from the provider rather than from a caller
	fromProvider bool
}

func sameCredentials(a, b models.CourierCredentials) bool {
	return a.Key == b.Key && subtle.ConstantTimeCompare([]byte(a.Password), []byte(b.Password)) == 1
}

// coalesce runs at most one flight per account at a time, so that logins for an account never
// overlap and the cache is written in the order they complete. A caller joining a flight it
// cannot use (see accept) waits for it to end and then starts or joins the next one.
//
// The flight is detached from the cancellation of the caller that started it and bounded by
// the auth timeout instead, so that one caller giving up does not fail the others. Each caller
// can still stop waiting on its own context.
func (o *Orchestrator) coalesce(
	ctx context.Context,
	key models.AccountKey,
	fn func(flightCtx context.Context) (flight, error),
	accept func(f flight, err error) bool,
) (models.SessionTokenResult, error) {
	for {
		ch := o.flights.DoChan(key.String(), func() (any, error) {
			flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.config.AuthTimeout)
			defer cancel()
			return fn(flightCtx)
		})

		select {
		case <-ctx.Done():
			return models.SessionTokenResult{}, errors.Wrap(ctx.Err(), "waiting for courier authentication")
		case res := <-ch:
			f, _ := res.Val.(flight)
			if !accept(f, res.Err) {
				utils.LoggerFromContext(ctx).DebugContext(ctx, "joined a courier login made with other credentials, logging in again",
					slog.String("account", key.String()))
				continue
			}
			if res.Err != nil {
				return models.SessionTokenResult{}, res.Err
			}
			return f.result, nil
		}
	}
}

func (o *Orchestrator) login(ctx context.Context, creds models.CourierCredentials) (flight, error) {
	logger := utils.LoggerFromContext(ctx).With(slog.String("account", creds.Key.String()))
	f := flight{loggedIn: true, creds: creds}

	start := time.Now()
	raw, err := o.backend.Authenticate(ctx, creds)
	utils.MetricSessionAuthenticationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if isTimeout(err) {
			utils.MetricSessionAuthentications.WithLabelValues("timeout").Inc()
			logger.WarnContext(ctx, "courier authentication timed out", slog.Duration("timeout", o.config.AuthTimeout))
			return f, errors.WithSecondaryError(
				errors.Wrapf(models.ErrUpstreamAuthTimeout, "account %s", creds.Key), err)
		}
		utils.MetricSessionAuthentications.WithLabelValues("upstream_failed").Inc()
		logger.WarnContext(ctx, "courier authentication failed", slog.String("error", err.Error()))
		if errors.Is(err, models.ErrUpstreamAuthFailed) || errors.Is(err, models.BadParameterError) {
			return f, errors.Wrapf(err, "account %s", creds.Key)
		}
		return f, errors.WithSecondaryError(
			errors.Wrapf(models.ErrUpstreamAuthFailed, "account %s", creds.Key), err)
	}

	value, err := o.extractor.Extract(raw)
	if err != nil {
		utils.MetricSessionAuthentications.WithLabelValues("unparseable").Inc()
		var notFound *TokenNotFoundError
		if errors.As(err, &notFound) {
			logger.ErrorContext(ctx, "no session token in courier authentication response",
				slog.Any("fields", notFound.Fields))
		} else {
			logger.ErrorContext(ctx, "courier authentication response is not json",
				slog.Int("body_length", len(raw)))
		}
		return f, errors.WithSecondaryError(
			errors.Wrapf(models.ErrResponseUnparseable, "account %s", creds.Key), err)
	}

	token := o.cache.Put(creds.Key, value, o.config.TokenTtl)
	utils.MetricSessionAuthentications.WithLabelValues("success").Inc()
	utils.MetricSessionCacheEntries.Set(float64(o.cache.Len()))
	logger.InfoContext(ctx, "courier session opened",
		slog.String("token", token.Redacted()),
		slog.Time("expires_at", token.ExpiresAt))

	f.result = models.SessionTokenResult{Token: token, FreshlyMinted: true}
	return f, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, models.ErrUpstreamAuthTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
