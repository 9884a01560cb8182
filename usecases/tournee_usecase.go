package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/deliveryrouting/courier-backend/models"
	"github.com/deliveryrouting/courier-backend/repositories/clock"
	"github.com/deliveryrouting/courier-backend/repositories/httpmodels"
	"github.com/deliveryrouting/courier-backend/utils"
)

type SessionOrchestrator interface {
	EnsureToken(ctx context.Context, key models.AccountKey) (models.SessionTokenResult, error)
	Authenticate(ctx context.Context, creds models.CourierCredentials) (models.SessionTokenResult, error)
	Invalidate(ctx context.Context, key models.AccountKey, rejected string)
	CachedSessions() int
}

type TourneeRepository interface {
	FetchTournee(ctx context.Context, token string, query models.TourneeQuery) (string, error)
}

// AddressValidator geocodes the address of a parcel. It is optional: without it, every parcel
// is left for manual validation.
type AddressValidator interface {
	ValidateAddress(ctx context.Context, address, matricule string) (models.AddressValidation, error)
}

type TourneeUsecase struct {
	sessions         SessionOrchestrator
	repository       TourneeRepository
	addressValidator AddressValidator
	clock            clock.Clock
}

// Authenticate opens a new courier session with caller supplied credentials, replacing the cached one.
func (usecase *TourneeUsecase) Authenticate(ctx context.Context, creds models.CourierCredentials) (models.SessionTokenResult, error) {
	return usecase.sessions.Authenticate(ctx, creds)
}

func (usecase *TourneeUsecase) GetTournee(ctx context.Context, query models.TourneeQuery) (models.Tournee, error) {
	query = usecase.withDefaultDate(query)

	data, tokenSource, err := usecase.fetchTournee(ctx, query)
	if err != nil {
		return models.Tournee{}, err
	}

	return models.Tournee{
		Query:       query,
		Data:        data,
		TokenSource: tokenSource,
	}, nil
}

func (usecase *TourneeUsecase) GetPackages(ctx context.Context, query models.TourneeQuery) (models.TourneePackages, error) {
	query = usecase.withDefaultDate(query)
	logger := utils.LoggerFromContext(ctx)

	data, tokenSource, err := usecase.fetchTournee(ctx, query)
	if err != nil {
		return models.TourneePackages{}, err
	}

	packages, completedCode, err := httpmodels.AdaptColisPriveTourneePackages(data)
	if err != nil {
		return models.TourneePackages{}, err
	}
	logger.InfoContext(ctx, fmt.Sprintf("%d parcels in tournee", len(packages)),
		slog.String("account", query.Key.String()),
		slog.String("date", query.FormattedDate()))

	result := models.TourneePackages{
		Query:                query,
		TokenSource:          tokenSource,
		CompletedTourneeCode: completedCode,
		Packages:             packages,
		Summary:              models.AddressValidationSummary{TotalPackages: len(packages)},
	}
	if result.IsCompleted() {
		return result, nil
	}

	usecase.validateAddresses(ctx, query.Key.OperatorId, &result)
	return result, nil
}

func (usecase *TourneeUsecase) validateAddresses(ctx context.Context, matricule string, result *models.TourneePackages) {
	if usecase.addressValidator == nil {
		result.Summary.RequiresManual = len(result.Packages)
		return
	}

	tracer := utils.OpenTelemetryTracerFromContext(ctx)
	ctx, span := tracer.Start(
		ctx,
		"TourneeUsecase.validateAddresses",
		trace.WithAttributes(attribute.Int("packages", len(result.Packages))))
	defer span.End()

	logger := utils.LoggerFromContext(ctx)
	for i := range result.Packages {
		pkg := &result.Packages[i]
		validation, err := usecase.addressValidator.ValidateAddress(ctx, pkg.Address, matricule)
		if err != nil {
			logger.WarnContext(ctx, "could not validate parcel address",
				slog.String("package_id", pkg.Id),
				slog.String("error", err.Error()))
			validation = models.AddressValidation{
				Method:     models.ValidationMethodManualRequired,
				Confidence: models.ConfidenceNone,
				Warnings:   []string{fmt.Sprintf("validation error: %s", err)},
			}
		}
		pkg.Validation = &validation
		result.Summary.Record(validation.Method)
		result.Summary.Warnings = append(result.Summary.Warnings, validation.Warnings...)
	}
}

// fetchTournee reads the tournée with a session token, dropping that token if the courier rejects it
// so that the next call logs in again.
func (usecase *TourneeUsecase) fetchTournee(ctx context.Context, query models.TourneeQuery) (string, string, error) {
	if err := query.Key.Validate(); err != nil {
		return "", "", err
	}

	session, err := usecase.sessions.EnsureToken(ctx, query.Key)
	if err != nil {
		return "", "", err
	}

	data, err := usecase.repository.FetchTournee(ctx, session.Token.Value, query)
	if errors.Is(err, models.ErrUpstreamTokenRejected) {
		usecase.sessions.Invalidate(ctx, query.Key, session.Token.Value)
	}
	if err != nil {
		return "", "", errors.Wrapf(err, "fetching tournee of %s on %s", query.Key, query.FormattedDate())
	}
	return data, session.Source(), nil
}

func (usecase *TourneeUsecase) withDefaultDate(query models.TourneeQuery) models.TourneeQuery {
	if query.Date.IsZero() {
		query.Date = usecase.clock.Now()
	}
	return query
}
