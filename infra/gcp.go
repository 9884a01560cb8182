package infra

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/cockroachdb/errors"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/deliveryrouting/courier-backend/utils"
)

const (
	googleMetadataProjectIdUrl = "http://metadata.google.internal/computeMetadata/v1/project/project-id"
	projectIdKey               = "project_id"
)

// The project id does not change during the lifetime of the process
var projectIdCache = expirable.NewLRU[string, string](1, nil, 0)

var metadataClient = &http.Client{Timeout: 2 * time.Second}

// GetProjectId returns the configured project id, or asks the GCP metadata server when none is
// configured. Outside of GCP it returns an empty id and no error.
func GetProjectId(ctx context.Context, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if projectId, exists := projectIdCache.Get(projectIdKey); exists {
		return projectId, nil
	}

	var projectId string
	err := retry.Do(
		func() error {
			var err error
			projectId, err = getProjectIdFromMetadataServer(ctx, googleMetadataProjectIdUrl)
			return err
		},
		retry.Attempts(3),
		retry.LastErrorOnly(true),
		retry.Delay(100*time.Millisecond),
		retry.Context(ctx),
	)
	if err != nil {
		return "", err
	}

	projectIdCache.Add(projectIdKey, projectId)
	return projectId, nil
}

func getProjectIdFromMetadataServer(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	req.Header.Add("Metadata-Flavor", "Google")
	resp, err := metadataClient.Do(req)
	if err != nil {
		// expected outside of GCP, not worth retrying
		utils.LoggerFromContext(ctx).DebugContext(ctx, "could not reach the google cloud metadata server")
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("unexpected status code from google cloud metadata server: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
