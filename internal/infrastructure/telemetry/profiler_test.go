package telemetry_test

import (
	"context"
	"testing"

	"github.com/erp/construction/internal/infrastructure/config"
	"github.com/erp/construction/internal/infrastructure/telemetry"
	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := telemetry.NewProfiler(config.ProfilingConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_Validation(t *testing.T) {
	_, err := telemetry.NewProfiler(config.ProfilingConfig{Enabled: true}, nil)
	assert.ErrorContains(t, err, "server address")

	_, err = telemetry.NewProfiler(config.ProfilingConfig{
		Enabled:       true,
		ServerAddress: "http://localhost:4040",
		ProfileTypes:  []string{"cpu", "heap"},
	}, nil)
	assert.ErrorContains(t, err, `"heap"`)
}

func TestParseProfileTypes(t *testing.T) {
	types, err := telemetry.ParseProfileTypes([]string{"cpu", "inuse_space", "mutex_count"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU, pyroscope.ProfileInuseSpace, pyroscope.ProfileMutexCount,
	}, types)
}

func TestProviders_EnableSpanProfilesWithoutTracing(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), config.TelemetryConfig{}, nil)
	require.NoError(t, err)
	assert.False(t, p.EnableSpanProfiles())
}
