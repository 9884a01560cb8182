package usecases

import (
	"github.com/deliveryrouting/courier-backend/infra"
	"github.com/deliveryrouting/courier-backend/repositories"
	"github.com/deliveryrouting/courier-backend/usecases/courier_session"
)

type Usecases struct {
	Repositories     repositories.Repositories
	appName          string
	apiVersion       string
	courierConfig    infra.CourierConfiguration
	addressValidator AddressValidator

	cache     *courier_session.CredentialCache
	sessions  *courier_session.Orchestrator
	companies *CompaniesUsecase
}

type Option func(*options)

func WithAppName(appName string) Option {
	return func(o *options) {
		o.appName = appName
	}
}

func WithApiVersion(apiVersion string) Option {
	return func(o *options) {
		o.apiVersion = apiVersion
	}
}

func WithAddressValidator(validator AddressValidator) Option {
	return func(o *options) {
		o.addressValidator = validator
	}
}

// WithCredentialProvider replaces the single configured password with another credential source.
func WithCredentialProvider(provider courier_session.CredentialProvider) Option {
	return func(o *options) {
		o.credentials = provider
	}
}

func WithTokenProbes(probes ...courier_session.TokenProbe) Option {
	return func(o *options) {
		o.extraTokenProbes = append(o.extraTokenProbes, probes...)
	}
}

type options struct {
	appName          string
	apiVersion       string
	addressValidator AddressValidator
	credentials      courier_session.CredentialProvider
	extraTokenProbes []courier_session.TokenProbe
}

func newUsecasesWithOptions(repositories repositories.Repositories, courierConfig infra.CourierConfiguration, o *options) Usecases {
	if o.credentials == nil {
		o.credentials = courier_session.EnvCredentialProvider{
			Password:      courierConfig.Password,
			ValidityHours: courierConfig.TokenValidityHours(),
		}
	}

	cache := courier_session.NewCredentialCache(repositories.Clock, courierConfig.CacheShardCount)
	sessions := courier_session.NewOrchestrator(
		cache,
		courier_session.NewTokenExtractor(o.extraTokenProbes...),
		repositories.ColisPriveRepository,
		o.credentials,
		repositories.Clock,
		courier_session.OrchestratorConfig{
			TokenTtl:      courierConfig.TokenTtl,
			RefreshMargin: courierConfig.RefreshMargin,
			AuthTimeout:   courierConfig.HttpTimeout,
		},
	)

	return Usecases{
		Repositories:     repositories,
		appName:          o.appName,
		apiVersion:       o.apiVersion,
		courierConfig:    courierConfig,
		addressValidator: o.addressValidator,
		cache:            cache,
		sessions:         sessions,
		companies: NewCompaniesUsecase(
			repositories.ColisPriveRepository,
			courierConfig.CompaniesCacheTtl,
			ParseCompanies(courierConfig.DefaultCompanies),
		),
	}
}

// NewUsecases wires the courier session layer once. The credential cache it builds is shared by
// every usecase created from the returned value.
func NewUsecases(repositories repositories.Repositories, courierConfig infra.CourierConfiguration, opts ...Option) Usecases {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return newUsecasesWithOptions(repositories, courierConfig, o)
}

func (usecases *Usecases) NewSessionOrchestrator() *courier_session.Orchestrator {
	return usecases.sessions
}

func (usecases *Usecases) NewEvictionScheduler() (*courier_session.EvictionScheduler, error) {
	return courier_session.NewEvictionScheduler(
		usecases.cache,
		usecases.Repositories.Clock,
		usecases.courierConfig.EvictionSchedule,
	)
}

func (usecases *Usecases) NewTourneeUsecase() TourneeUsecase {
	return TourneeUsecase{
		sessions:         usecases.sessions,
		repository:       usecases.Repositories.ColisPriveRepository,
		addressValidator: usecases.addressValidator,
		clock:            usecases.Repositories.Clock,
	}
}

// NewCompaniesUsecase returns the shared instance, so that its cache outlives requests.
func (usecases *Usecases) NewCompaniesUsecase() *CompaniesUsecase {
	return usecases.companies
}

func (usecases *Usecases) NewHealthUsecase() HealthUsecase {
	return HealthUsecase{
		sessions:         usecases.sessions,
		healthRepository: usecases.Repositories.ColisPriveRepository,
		hasPassword:      usecases.courierConfig.Password != "",
	}
}

func (usecases *Usecases) NewLivenessUsecase() LivenessUsecase {
	return LivenessUsecase{
		sessions: usecases.sessions,
	}
}

func (usecases Usecases) AppName() string {
	return usecases.appName
}

func (usecases Usecases) ApiVersion() string {
	return usecases.apiVersion
}
