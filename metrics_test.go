package gotensor_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gotensor"
)

// ============================================================
// Metrics tests
// ============================================================

func TestNewEngine_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	logger := gotensor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	first, err := gotensor.NewEngine(gotensor.DefaultConfig(), gotensor.WithRegistry(reg), logger)
	require.NoError(t, err)
	second, err := gotensor.NewEngine(gotensor.DefaultConfig(), gotensor.WithRegistry(reg), logger)
	require.NoError(t, err)

	x := first.MustTensor("x")
	first.Compare(x, x)
	y := second.MustTensor("y")
	second.Compare(y, y)

	assert.Equal(t, 2.0, metricValue(t, first, "gotensor_comparisons_total"))
	assert.Equal(t, 2.0, metricValue(t, second, "gotensor_comparisons_total"))
}
