package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/cockroachdb/errors"

	"github.com/deliveryrouting/courier-backend/infra"
	"github.com/deliveryrouting/courier-backend/models"
	"github.com/deliveryrouting/courier-backend/pure_utils"
	"github.com/deliveryrouting/courier-backend/repositories/httpmodels"
	"github.com/deliveryrouting/courier-backend/utils"
)

const (
	colisPriveLoginPath   = "/api/auth/login/Membership"
	colisPriveTourneePath = "/WS-TourneeColis/api/getTourneeByMatriculeDistributeurDateDebut_POST"
	colisPriveTokenHeader = "SsoHopps"

	maxCourierResponseBytes = 10 << 20
	maxLoggedBodyLength     = 200
)

type ColisPriveRepository struct {
	client         *http.Client
	authUrl        string
	tourneeUrl     string
	referentielUrl string
	retryAttempts  uint
	retryDelay     time.Duration
}

func NewColisPriveRepository(client *http.Client, config infra.CourierConfiguration) ColisPriveRepository {
	attempts := config.FetchRetryAttempts
	if attempts == 0 {
		attempts = 1
	}
	delay := config.FetchRetryDelay
	if delay == 0 {
		delay = 200 * time.Millisecond
	}
	return ColisPriveRepository{
		client:         client,
		authUrl:        strings.TrimSuffix(config.AuthUrl, "/"),
		tourneeUrl:     strings.TrimSuffix(config.TourneeUrl, "/"),
		referentielUrl: config.ReferentielUrl,
		retryAttempts:  attempts,
		retryDelay:     delay,
	}
}

// Authenticate sends the login request and returns the raw body of a successful answer. It is
// never retried: the orchestrator decides when to log in again.
func (repo ColisPriveRepository) Authenticate(ctx context.Context, creds models.CourierCredentials) ([]byte, error) {
	payload, err := json.Marshal(httpmodels.AdaptColisPriveLoginRequest(creds))
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal courier login request")
	}

	status, body, err := repo.do(ctx, "auth", http.MethodPost, repo.authUrl+colisPriveLoginPath, payload, nil)
	if err != nil {
		if isNetworkTimeout(err) {
			return nil, errors.WithSecondaryError(models.ErrUpstreamAuthTimeout, err)
		}
		return nil, errors.WithSecondaryError(models.ErrUpstreamAuthFailed, err)
	}
	if status < 200 || status > 299 {
		return nil, errors.Wrapf(models.ErrUpstreamAuthFailed, "courier login returned status %d: %s",
			status, truncate(string(body), maxLoggedBodyLength))
	}
	return body, nil
}

// FetchTournee returns the tournée document of the operator for the day, with its base64
// framing removed. Transport failures and 5xx answers are retried.
func (repo ColisPriveRepository) FetchTournee(ctx context.Context, token string, query models.TourneeQuery) (string, error) {
	payload, err := json.Marshal(httpmodels.AdaptColisPriveTourneeRequest(query))
	if err != nil {
		return "", errors.Wrap(err, "could not marshal tournee request")
	}
	headers := map[string]string{colisPriveTokenHeader: token}

	var body []byte
	err = repo.withRetry(ctx, func() error {
		status, b, err := repo.do(ctx, "tournee", http.MethodPost, repo.tourneeUrl+colisPriveTourneePath, payload, headers)
		if err != nil {
			return errors.WithSecondaryError(
				errors.Wrap(models.UpstreamUnavailableError, "courier tournee request failed"), err)
		}
		if err := checkDownstreamStatus("tournee", status, b); err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return "", err
	}

	return pure_utils.DecodeIfBase64Quoted(string(body)), nil
}

func (repo ColisPriveRepository) FetchCompanies(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	err := repo.withRetry(ctx, func() error {
		status, body, err := repo.do(ctx, "referentiel", http.MethodGet, repo.referentielUrl, nil, nil)
		if err != nil {
			return errors.WithSecondaryError(
				errors.Wrap(models.UpstreamUnavailableError, "courier referentiel request failed"), err)
		}
		if err := checkDownstreamStatus("referentiel", status, body); err != nil {
			return err
		}
		companies, err = httpmodels.AdaptColisPriveCompanies(body)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		return nil
	})
	return companies, err
}

func (repo ColisPriveRepository) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Attempts(repo.retryAttempts),
		retry.LastErrorOnly(true),
		retry.Delay(repo.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			utils.LoggerFromContext(ctx).WarnContext(ctx,
				fmt.Sprintf("retrying courier request (attempt %d): %v", n+1, err))
		}),
	)
}

func checkDownstreamStatus(endpoint string, status int, body []byte) error {
	switch {
	case status >= 200 && status <= 299:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return retry.Unrecoverable(errors.Wrapf(models.ErrUpstreamTokenRejected,
			"courier %s returned status %d", endpoint, status))
	case status >= 500:
		return errors.Wrapf(models.UpstreamUnavailableError, "courier %s returned status %d: %s",
			endpoint, status, truncate(string(body), maxLoggedBodyLength))
	default:
		return retry.Unrecoverable(errors.Wrapf(models.UpstreamUnavailableError,
			"courier %s returned status %d: %s", endpoint, status, truncate(string(body), maxLoggedBodyLength)))
	}
}

func (repo ColisPriveRepository) do(
	ctx context.Context,
	endpoint, method, url string,
	payload []byte,
	headers map[string]string,
) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "could not build courier %s request", endpoint)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := repo.client.Do(req)
	if err != nil {
		utils.MetricUpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return 0, nil, err
	}
	defer resp.Body.Close()
	utils.MetricUpstreamRequests.WithLabelValues(endpoint, statusClass(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCourierResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, errors.Wrapf(err, "could not read courier %s response", endpoint)
	}
	return resp.StatusCode, body, nil
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

func isNetworkTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
