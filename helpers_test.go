package gotensor_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gotensor"
)

func newEngine(t *testing.T, mutate ...func(*gotensor.Config)) *gotensor.Engine {
	t.Helper()
	cfg := gotensor.DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	eng, err := gotensor.NewEngine(cfg, gotensor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return eng
}

func mul(t *testing.T, eng *gotensor.Engine, ts ...gotensor.Tensor) gotensor.Tensor {
	t.Helper()
	p, err := eng.Multiply(ts...)
	require.NoError(t, err)
	return p
}

func sum(t *testing.T, eng *gotensor.Engine, ts ...gotensor.Tensor) gotensor.Tensor {
	t.Helper()
	s, err := eng.Sum(ts...)
	require.NoError(t, err)
	return s
}

// metricValue returns the summed value of counter or histogram-count
// samples of the named family, or 0 if absent.
func metricValue(t *testing.T, eng *gotensor.Engine, name string) float64 {
	t.Helper()
	families, err := eng.Registry().Gather()
	require.NoError(t, err)
	var v float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				v += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				v += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return v
}
