package repositories

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

const livenessTimeout = 3 * time.Second

// AuthLiveness checks that the courier authentication host answers. Any http status counts:
// only the transport is checked, no credentials are sent.
func (repo ColisPriveRepository) AuthLiveness(ctx context.Context) error {
	return repo.ping(ctx, "auth_liveness", repo.authUrl)
}

func (repo ColisPriveRepository) TourneeLiveness(ctx context.Context) error {
	return repo.ping(ctx, "tournee_liveness", repo.tourneeUrl)
}

func (repo ColisPriveRepository) ping(ctx context.Context, endpoint, url string) error {
	ctx, cancel := context.WithTimeout(ctx, livenessTimeout)
	defer cancel()

	if _, _, err := repo.do(ctx, endpoint, http.MethodHead, url, nil, nil); err != nil {
		return errors.Wrapf(err, "courier %s is unreachable", endpoint)
	}
	return nil
}
