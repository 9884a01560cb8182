package api

import (
	"time"
)

type Configuration struct {
	Env                 string
	AppName             string
	AppVersion          string
	Port                string
	RequestLoggingLevel string
	DefaultTimeout      time.Duration
	MaxRequestBodyBytes int64
	CorsOrigins         []string

	// Carrier account used by the packages route when the request does not name one
	DefaultSociete string
}
