package byujwt

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	metrics := &NoopMetrics{}

	metrics.IncCounter("test_counter", map[string]string{"tag": "value"})
	metrics.ObserveHistogram("test_histogram", 1.5, map[string]string{"tag": "value"})
}

func TestPrometheusMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(registry)

	t.Run("IncCounter", func(t *testing.T) {
		tags := map[string]string{"result": "success"}

		metrics.IncCounter("test_counter", tags)
		metrics.IncCounter("test_counter", tags)

		metric := &dto.Metric{}
		err := metrics.counters["test_counter"].With(prometheus.Labels(tags)).(prometheus.Metric).Write(metric)
		require.NoError(t, err)
		assert.Equal(t, float64(2), metric.GetCounter().GetValue())
	})

	t.Run("ObserveHistogram", func(t *testing.T) {
		tags := map[string]string{"result": "token_expired"}

		metrics.ObserveHistogram("test_histogram", 0.25, tags)

		metric := &dto.Metric{}
		err := metrics.histograms["test_histogram"].With(prometheus.Labels(tags)).(prometheus.Metric).Write(metric)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), metric.GetHistogram().GetSampleCount())
		assert.Equal(t, 0.25, metric.GetHistogram().GetSampleSum())
	})

	t.Run("registers with the given registry", func(t *testing.T) {
		families, err := registry.Gather()
		require.NoError(t, err)

		names := make([]string, 0, len(families))
		for _, family := range families {
			names = append(names, family.GetName())
		}
		assert.ElementsMatch(t, []string{"test_counter", "test_histogram"}, names)
	})
}
