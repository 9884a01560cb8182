package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/assert"

	"github.com/deliveryrouting/courier-backend/infra"
	"github.com/deliveryrouting/courier-backend/repositories"
	"github.com/deliveryrouting/courier-backend/repositories/clock"
	"github.com/deliveryrouting/courier-backend/usecases"
	"github.com/deliveryrouting/courier-backend/utils"
)

const tourneeDocument = `{
	"InfosTournee": {"codeTourneeDistribution": "T42"},
	"LstLieuArticle": [
		{
			"idArticle": "A1",
			"metier": "COLIS",
			"refExterneArticle": "CP123",
			"nomDestinataire": "Jeanne Martin",
			"LibelleVoieOrigineDestinataire": "12 rue de la Paix",
			"codePostalOrigineDestinataire": "75002",
			"LibelleLocaliteOrigineDestinataire": "Paris"
		},
		{"idArticle": "A2", "metier": "RELAIS"},
		{"idArticle": "A3", "metier": "COLIS", "LibelleVoieOrigineDestinataire": "3 place Bellecour"}
	]
}`

// fakeColisPrive plays the courier platform: one valid password, one token per login.
type fakeColisPrive struct {
	logins           atomic.Int32
	rejectNextFetch  atomic.Bool
	referentielDown  atomic.Bool
	lastTourneeToken atomic.Value
}

func (f *fakeColisPrive) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login/Membership", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Login    string `json:"login"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.logins.Add(1)
		if body.Password != "good-password" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"isAuthentif":true,"tokens":{"SsoHopps":"abc123"}}`))
	})
	mux.HandleFunc("POST /WS-TourneeColis/api/getTourneeByMatriculeDistributeurDateDebut_POST",
		func(w http.ResponseWriter, r *http.Request) {
			f.lastTourneeToken.Store(r.Header.Get("SsoHopps"))
			if f.rejectNextFetch.CompareAndSwap(true, false) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_, _ = w.Write([]byte(tourneeDocument))
		})
	mux.HandleFunc("GET /referentiel", func(w http.ResponseWriter, r *http.Request) {
		if f.referentielDown.Load() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"Result":[{"code":"PCP0010699","libelle":"Société A"}]}`))
	})
	return mux
}

func setupApi(t *testing.T, password string) (*httpexpect.Expect, *fakeColisPrive) {
	t.Helper()

	fake := &fakeColisPrive{}
	upstream := httptest.NewServer(fake.handler())
	t.Cleanup(upstream.Close)

	courierConfig := infra.CourierConfiguration{
		AuthUrl:            upstream.URL,
		TourneeUrl:         upstream.URL,
		ReferentielUrl:     upstream.URL + "/referentiel",
		DefaultSociete:     "PCP0010699",
		Password:           password,
		TokenTtl:           24 * time.Hour,
		RefreshMargin:      time.Minute,
		HttpTimeout:        5 * time.Second,
		FetchRetryAttempts: 1,
		CacheShardCount:    4,
		CompaniesCacheTtl:  time.Hour,
		DefaultCompanies:   []string{"INTI:Inti"},
	}
	conf := Configuration{
		Env:            "test",
		AppName:        "courier-backend-test",
		Port:           "0",
		DefaultTimeout: 10 * time.Second,
		DefaultSociete: courierConfig.DefaultSociete,
	}

	clk := clock.NewMock(time.Date(2025, 8, 28, 9, 30, 0, 0, time.UTC))
	repos := repositories.NewRepositories(
		infra.NewCourierHttpClient(courierConfig, nil),
		courierConfig,
		repositories.WithClock(clk))
	uc := usecases.NewUsecases(repos, courierConfig, usecases.WithAppName(conf.AppName))

	ctx := utils.StoreLoggerInContext(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := InitRouterMiddlewares(ctx, conf, infra.NoopTelemetry())
	server := NewServer(router, conf, uc, WithLocalTest(true))

	api := httptest.NewServer(server.Handler)
	t.Cleanup(api.Close)

	return httpexpect.Default(t, api.URL), fake
}

func TestLivenessAndMetrics(t *testing.T) {
	e, _ := setupApi(t, "good-password")

	e.GET("/liveness").Expect().
		Status(http.StatusOK).
		JSON().Object().ContainsKey("mood")

	e.GET("/metrics").Expect().
		Status(http.StatusOK).
		Body().Contains("courier_session_cache_entries")
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		e, _ := setupApi(t, "good-password")

		obj := e.GET("/health").Expect().Status(http.StatusOK).JSON().Object()
		obj.HasValue("healthy", true)
		obj.HasValue("cached_sessions", 0)
		obj.Value("status").Array().Length().IsEqual(3)

		e.GET("/api/colis-prive/health").Expect().Status(http.StatusOK)
	})

	t.Run("no courier password", func(t *testing.T) {
		e, _ := setupApi(t, "")

		e.GET("/health").Expect().
			Status(http.StatusServiceUnavailable).
			JSON().Object().HasValue("healthy", false)
	})
}

func TestColisPriveAuth(t *testing.T) {
	e, fake := setupApi(t, "good-password")

	obj := e.POST("/api/colis-prive/auth").
		WithJSON(map[string]any{"username": "U1", "password": "good-password", "societe": "S1"}).
		Expect().Status(http.StatusOK).
		JSON().Object()
	obj.HasValue("success", true)
	obj.Value("authentication").Object().HasValue("token", "abc123")
	obj.Value("authentication").Object().HasValue("matricule", "U1")
	obj.Value("credentials_used").Object().IsEqual(map[string]any{"username": "U1", "societe": "S1"})

	e.POST("/api/colis-prive/auth").
		WithJSON(map[string]any{"username": "U1", "password": "wrong", "societe": "S1"}).
		Expect().Status(http.StatusUnauthorized).
		JSON().Object().
		HasValue("success", false).
		Value("error").Object().HasValue("code", "AUTH_FAILED")

	e.POST("/api/colis-prive/auth").
		WithJSON(map[string]any{"username": "U1"}).
		Expect().Status(http.StatusBadRequest).
		JSON().Object().Value("error").Object().HasValue("code", "BAD_REQUEST")

	assert.Equal(t, int32(2), fake.logins.Load())
}

func TestColisPriveTournee(t *testing.T) {
	e, fake := setupApi(t, "good-password")
	body := map[string]any{"username": "U1", "societe": "S1", "matricule": "U1"}

	first := e.POST("/api/colis-prive/tournee").WithJSON(body).
		Expect().Status(http.StatusOK).
		JSON().Object()
	first.HasValue("success", true)
	first.Value("data").String().Contains("LstLieuArticle")
	first.Value("metadata").Object().HasValue("token_source", "fresh_login")
	first.Value("metadata").Object().HasValue("date", "2025-08-28")

	e.POST("/api/colis-prive/tournee").WithJSON(body).
		Expect().Status(http.StatusOK).
		JSON().Object().Value("metadata").Object().HasValue("token_source", "cache")

	assert.Equal(t, int32(1), fake.logins.Load())
	assert.Equal(t, "abc123", fake.lastTourneeToken.Load())

	t.Run("rejected token is dropped", func(t *testing.T) {
		fake.rejectNextFetch.Store(true)
		e.POST("/api/colis-prive/tournee").WithJSON(body).
			Expect().Status(http.StatusUnauthorized).
			JSON().Object().Value("error").Object().HasValue("code", "TOKEN_REJECTED")

		e.POST("/api/colis-prive/tournee").WithJSON(body).
			Expect().Status(http.StatusOK).
			JSON().Object().Value("metadata").Object().HasValue("token_source", "fresh_login")
		assert.Equal(t, int32(2), fake.logins.Load())
	})

	t.Run("invalid date", func(t *testing.T) {
		e.POST("/api/colis-prive/tournee").
			WithJSON(map[string]any{"username": "U1", "societe": "S1", "date": "28/08/2025"}).
			Expect().Status(http.StatusBadRequest)
	})
}

func TestColisPriveTournee_noPassword(t *testing.T) {
	e, fake := setupApi(t, "")

	e.POST("/api/colis-prive/tournee").
		WithJSON(map[string]any{"username": "U1", "societe": "S1"}).
		Expect().Status(http.StatusBadRequest).
		JSON().Object().Value("error").Object().HasValue("code", "MISSING_COURIER_CREDENTIALS")
	assert.Equal(t, int32(0), fake.logins.Load())
}

func TestColisPrivePackages(t *testing.T) {
	e, _ := setupApi(t, "good-password")

	obj := e.POST("/api/colis-prive/packages").
		WithJSON(map[string]any{"matricule": "U1", "date": "2025-08-29"}).
		Expect().Status(http.StatusOK).
		JSON().Object()

	obj.HasValue("success", true)
	obj.Value("metadata").Object().HasValue("societe", "PCP0010699")
	obj.Value("metadata").Object().HasValue("date", "2025-08-29")
	packages := obj.Value("packages").Array()
	packages.Length().IsEqual(2)
	packages.Value(0).Object().HasValue("id", "A1")
	packages.Value(0).Object().HasValue("address", "12 rue de la Paix, 75002 Paris")
	packages.Value(1).Object().Value("latitude").IsNull()
	obj.Value("address_validation").Object().HasValue("requires_manual", 2)
}

func TestColisPriveCompanies(t *testing.T) {
	e, fake := setupApi(t, "good-password")

	fake.referentielDown.Store(true)
	e.GET("/api/colis-prive/companies").Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("companies").Array().Value(0).Object().HasValue("code", "INTI")

	fake.referentielDown.Store(false)
	companies := e.GET("/api/colis-prive/companies").Expect().
		Status(http.StatusOK).
		JSON().Object().Value("companies").Array()
	companies.Length().IsEqual(1)
	companies.Value(0).Object().HasValue("name", "Société A")
}
