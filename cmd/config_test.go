package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSamplingRates(t *testing.T) {
	rates, err := parseSamplingRates("route:/api/colis-prive/tournee=1, span:Orchestrator.EnsureToken=0.5,")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"/api/colis-prive/tournee": 1}, rates.HttpRoutes)
	assert.Equal(t, map[string]float64{"Orchestrator.EnsureToken": 0.5}, rates.SpanNames)

	empty, err := parseSamplingRates("")
	require.NoError(t, err)
	assert.Empty(t, empty.HttpRoutes)

	for _, raw := range []string{"route:/health", "route:/health=2", "path:/health=0.1", "span:x=abc"} {
		_, err := parseSamplingRates(raw)
		assert.Error(t, err, raw)
	}
}

func TestServerConfig_Validate(t *testing.T) {
	valid := ServerConfig{loggingFormat: "json", telemetryExporter: "gcp"}
	assert.NoError(t, valid.Validate())

	badFormat := valid
	badFormat.loggingFormat = "xml"
	assert.Error(t, badFormat.Validate())

	badExporter := valid
	badExporter.telemetryExporter = "zipkin"
	assert.Error(t, badExporter.Validate())
}
