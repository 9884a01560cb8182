package infra

import (
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	DefaultColisPriveAuthUrl        = "https://wsauthentificationexterne.colisprive.com"
	DefaultColisPriveTourneeUrl     = "https://wstournee-v2.colisprive.com"
	DefaultColisPriveReferentielUrl = "https://wsreferentiel-v2.colisprive.com/WS_RefDistributeur/RefDistributeurConsolideExtranetToExterne.svc"
)

type TelemetrySamplingMap struct {
	HttpRoutes map[string]float64
	SpanNames  map[string]float64
}

type TelemetryConfiguration struct {
	Enabled         bool
	ApplicationName string
	ProjectID       string
	// "gcp" or "otlp"
	Exporter    string
	SamplingMap TelemetrySamplingMap
}

// CourierConfiguration gathers everything needed to talk to the Colis Privé platform.
type CourierConfiguration struct {
	AuthUrl        string
	TourneeUrl     string
	ReferentielUrl string

	// Carrier account used when a request does not name one.
	DefaultSociete string
	// Never logged.
	Password string

	TokenTtl           time.Duration
	RefreshMargin      time.Duration
	HttpTimeout        time.Duration
	RateLimit          int
	FetchRetryAttempts uint
	FetchRetryDelay    time.Duration

	EvictionSchedule string
	CacheShardCount  int

	CompaniesCacheTtl time.Duration
	DefaultCompanies  []string
}

func (c CourierConfiguration) TokenValidityHours() int {
	return max(int(c.TokenTtl/time.Hour), 1)
}

func (c CourierConfiguration) Validate() error {
	for name, raw := range map[string]string{
		"auth url":        c.AuthUrl,
		"tournee url":     c.TourneeUrl,
		"referentiel url": c.ReferentielUrl,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Newf("invalid courier %s %q", name, raw)
		}
	}
	if c.TokenTtl <= 0 {
		return errors.New("courier token ttl must be positive")
	}
	if c.RefreshMargin < 0 || c.RefreshMargin >= c.TokenTtl {
		return errors.Newf("courier token refresh margin must be between 0 and the token ttl (%s)", c.TokenTtl)
	}
	if c.HttpTimeout <= 0 {
		return errors.New("courier http timeout must be positive")
	}
	return nil
}
