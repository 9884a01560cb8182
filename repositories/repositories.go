package repositories

import (
	"net/http"

	"github.com/deliveryrouting/courier-backend/infra"
	"github.com/deliveryrouting/courier-backend/repositories/clock"
)

type Repositories struct {
	ColisPriveRepository ColisPriveRepository
	Clock                clock.Clock
}

type Option func(*options)

func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

type options struct {
	clock clock.Clock
}

func NewRepositories(httpClient *http.Client, courierConfig infra.CourierConfiguration, opts ...Option) Repositories {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}

	return Repositories{
		ColisPriveRepository: NewColisPriveRepository(httpClient, courierConfig),
		Clock:                o.clock,
	}
}
