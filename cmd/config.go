package cmd

import (
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/deliveryrouting/courier-backend/infra"
)

type CompiledConfig struct {
	Version string
}

type ServerConfig struct {
	loggingFormat     string
	sentryDsn         string
	telemetryExporter string
	otelSamplingRates string
	profilingProject  string
}

func (config ServerConfig) Validate() error {
	if !slices.Contains([]string{"text", "json"}, config.loggingFormat) {
		return errors.Newf("LOGGING_FORMAT must be text or json, got %q", config.loggingFormat)
	}
	if !slices.Contains([]string{"gcp", "otlp"}, config.telemetryExporter) {
		return errors.Newf("TRACING_EXPORTER must be gcp or otlp, got %q", config.telemetryExporter)
	}
	if _, err := parseSamplingRates(config.otelSamplingRates); err != nil {
		return err
	}
	return nil
}

// parseSamplingRates reads overrides of the trace sampling rates, as a comma separated list of
// "route:<path prefix>=<rate>" or "span:<span name>=<rate>" entries.
func parseSamplingRates(raw string) (infra.TelemetrySamplingMap, error) {
	out := infra.TelemetrySamplingMap{
		HttpRoutes: map[string]float64{},
		SpanNames:  map[string]float64{},
	}
	for entry := range strings.SplitSeq(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		target, rawRate, ok := strings.Cut(entry, "=")
		if !ok {
			return out, errors.Newf("invalid sampling rate %q: missing '='", entry)
		}
		rate, err := strconv.ParseFloat(rawRate, 64)
		if err != nil || rate < 0 || rate > 1 {
			return out, errors.Newf("invalid sampling rate %q: rate must be between 0 and 1", entry)
		}
		kind, name, _ := strings.Cut(target, ":")
		switch kind {
		case "route":
			out.HttpRoutes[name] = rate
		case "span":
			out.SpanNames[name] = rate
		default:
			return out, errors.Newf("invalid sampling rate %q: expected route: or span: prefix", entry)
		}
	}
	return out, nil
}
