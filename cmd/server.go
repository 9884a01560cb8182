package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"

	"github.com/deliveryrouting/courier-backend/api"
	"github.com/deliveryrouting/courier-backend/infra"
	"github.com/deliveryrouting/courier-backend/repositories"
	"github.com/deliveryrouting/courier-backend/usecases"
	"github.com/deliveryrouting/courier-backend/utils"
)

func RunServer(config CompiledConfig) error {
	// This is where we read the environment variables and set up the configuration for the application.
	apiConfig := api.Configuration{
		Env:                 utils.GetEnv("ENV", "development"),
		AppName:             "courier-backend",
		AppVersion:          config.Version,
		Port:                utils.GetEnv("PORT", "8080"),
		RequestLoggingLevel: utils.GetEnv("REQUEST_LOGGING_LEVEL", "info"),
		DefaultTimeout:      time.Duration(utils.GetEnv("DEFAULT_TIMEOUT_SECOND", 45)) * time.Second,
		MaxRequestBodyBytes: int64(utils.GetEnv("MAX_REQUEST_BODY_BYTES", 1<<20)),
		CorsOrigins:         utils.GetEnv("CORS_ORIGINS", []string{}),
	}
	courierConfig := infra.CourierConfiguration{
		AuthUrl:            utils.GetEnv("COLIS_PRIVE_AUTH_URL", infra.DefaultColisPriveAuthUrl),
		TourneeUrl:         utils.GetEnv("COLIS_PRIVE_TOURNEE_URL", infra.DefaultColisPriveTourneeUrl),
		ReferentielUrl:     utils.GetEnv("COLIS_PRIVE_REFERENTIEL_URL", infra.DefaultColisPriveReferentielUrl),
		DefaultSociete:     utils.GetEnv("COLIS_PRIVE_SOCIETE", "PCP0010699"),
		Password:           utils.GetEnv("COLIS_PRIVE_PASSWORD", ""),
		TokenTtl:           time.Duration(utils.GetEnv("COURIER_TOKEN_TTL_HOUR", 24)) * time.Hour,
		RefreshMargin:      time.Duration(utils.GetEnv("COURIER_TOKEN_REFRESH_MARGIN_SECOND", 60)) * time.Second,
		HttpTimeout:        time.Duration(utils.GetEnv("COURIER_HTTP_TIMEOUT_SECOND", 30)) * time.Second,
		RateLimit:          utils.GetEnv("COURIER_RATE_LIMIT", 10),
		FetchRetryAttempts: uint(max(utils.GetEnv("COURIER_FETCH_RETRY_ATTEMPTS", 3), 1)),
		FetchRetryDelay:    time.Duration(utils.GetEnv("COURIER_FETCH_RETRY_DELAY_MILLISECOND", 200)) * time.Millisecond,
		EvictionSchedule:   utils.GetEnv("CACHE_EVICTION_SCHEDULE", "*/5 * * * *"),
		CacheShardCount:    utils.GetEnv("CACHE_SHARD_COUNT", 16),
		CompaniesCacheTtl:  time.Duration(utils.GetEnv("COMPANIES_CACHE_TTL_MINUTE", 60)) * time.Minute,
		DefaultCompanies:   utils.GetEnv("COLIS_PRIVE_DEFAULT_COMPANIES", []string{"PCP0010699:Colis Privé"}),
	}
	apiConfig.DefaultSociete = courierConfig.DefaultSociete

	serverConfig := ServerConfig{
		loggingFormat:     utils.GetEnv("LOGGING_FORMAT", "text"),
		sentryDsn:         utils.GetEnv("SENTRY_DSN", ""),
		telemetryExporter: utils.GetEnv("TRACING_EXPORTER", "otlp"),
		otelSamplingRates: utils.GetEnv("TRACING_SAMPLING_RATES", ""),
		profilingProject:  utils.GetEnv("GOOGLE_CLOUD_PROJECT", ""),
	}

	logger := utils.NewLogger(serverConfig.loggingFormat)
	ctx := utils.StoreLoggerInContext(context.Background(), logger)

	if err := serverConfig.Validate(); err != nil {
		utils.LogAndReportSentryError(ctx, err)
		return err
	}
	if err := courierConfig.Validate(); err != nil {
		utils.LogAndReportSentryError(ctx, err)
		return err
	}
	if courierConfig.Password == "" {
		logger.WarnContext(ctx, "COLIS_PRIVE_PASSWORD is not set: only the /auth route can open courier sessions")
	}

	infra.SetupSentry(serverConfig.sentryDsn, apiConfig.Env, apiConfig.AppVersion)
	defer sentry.Flush(3 * time.Second)

	projectId, err := infra.GetProjectId(ctx, serverConfig.profilingProject)
	if err != nil {
		utils.LogAndReportSentryError(ctx, err)
	}
	samplingMap, _ := parseSamplingRates(serverConfig.otelSamplingRates)
	tracingConfig := infra.TelemetryConfiguration{
		ApplicationName: apiConfig.AppName,
		Enabled:         utils.GetEnv("ENABLE_TRACING", false),
		ProjectID:       projectId,
		Exporter:        serverConfig.telemetryExporter,
		SamplingMap:     samplingMap,
	}
	telemetryRessources, err := infra.InitTelemetry(tracingConfig, apiConfig.AppVersion)
	if err != nil {
		utils.LogAndReportSentryError(ctx, err)
		telemetryRessources = infra.NoopTelemetry()
	}
	ctx = utils.StoreOpenTelemetryTracerInContext(ctx, telemetryRessources.Tracer)

	repositories := repositories.NewRepositories(
		infra.NewCourierHttpClient(courierConfig, telemetryRessources.TracerProvider),
		courierConfig,
	)
	uc := usecases.NewUsecases(repositories, courierConfig,
		usecases.WithAppName(apiConfig.AppName),
		usecases.WithApiVersion(apiConfig.AppVersion),
	)

	evictionScheduler, err := uc.NewEvictionScheduler()
	if err != nil {
		utils.LogAndReportSentryError(ctx, err)
		return err
	}

	router := api.InitRouterMiddlewares(ctx, apiConfig, telemetryRessources)
	utils.SetupProfilerEndpoints(ctx, router, apiConfig.AppName, apiConfig.AppVersion, projectId)
	server := api.NewServer(router, apiConfig, uc)

	notify, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := evictionScheduler.Run(notify); err != nil {
			utils.LogAndReportSentryError(ctx, errors.Wrap(err, "credential cache eviction stopped"))
		}
	}()

	go func() {
		logger.InfoContext(ctx, "starting server",
			slog.String("port", apiConfig.Port),
			slog.String("version", apiConfig.AppVersion))
		err := server.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			utils.LogAndReportSentryError(ctx, errors.Wrap(err, "Error while serving the app"))
		}
		logger.InfoContext(ctx, "server returned")
	}()

	<-notify.Done()
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.LogAndReportSentryError(
			ctx,
			errors.Wrap(err, "Error while shutting down the server"),
		)
		return err
	}

	return nil
}
