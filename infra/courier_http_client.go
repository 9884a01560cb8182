package infra

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/deliveryrouting/courier-backend/utils"
)

// NewCourierHttpClient builds the client shared by every call to the courier platform: bounded in
// time, traced, rate limited and carrying the id of the request that triggered the call.
func NewCourierHttpClient(config CourierConfiguration, tracerProvider trace.TracerProvider) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport.(*http.Transport).Clone()
	transport = requestIdTransport{next: transport}
	if config.RateLimit > 0 {
		transport = &rateLimitedTransport{
			limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit),
			next:    transport,
		}
	}
	if tracerProvider != nil {
		transport = otelhttp.NewTransport(transport, otelhttp.WithTracerProvider(tracerProvider))
	}

	return &http.Client{
		Timeout:   config.HttpTimeout,
		Transport: transport,
	}
}

type rateLimitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, errors.Wrap(err, "waiting for the courier rate limiter")
	}
	return t.next.RoundTrip(req)
}

type requestIdTransport struct {
	next http.RoundTripper
}

func (t requestIdTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	requestId := utils.RequestIdFromContext(req.Context())
	if requestId == "" || req.Header.Get(utils.RequestIdHeader) != "" {
		return t.next.RoundTrip(req)
	}
	// a RoundTripper must not modify the request it was given
	req = req.Clone(req.Context())
	req.Header.Set(utils.RequestIdHeader, requestId)
	return t.next.RoundTrip(req)
}
