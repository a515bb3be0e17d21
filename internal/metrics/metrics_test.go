package metrics_test

import (
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/propgrid/internal/database"
	"github.com/vk/propgrid/internal/metrics"
	"github.com/vk/propgrid/internal/propkey"
	"github.com/vk/propgrid/internal/track"
)

type sizeInput struct{}

func (sizeInput) Name() propkey.QueryID    { return "metrics.size" }
func (sizeInput) DefaultValue(key int) int { return 0 }

type doubler struct{ calls *atomic.Int64 }

func (doubler) Name() propkey.QueryID { return "metrics.doubler" }

func (q doubler) Execute(db *database.Database, key int, tc *track.Context) (int, error) {
	q.calls.Add(1)
	return database.GetInput(db, sizeInput{}, key, tc) * 2, nil
}

func gather(t *testing.T, db *database.Database) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(metrics.NewCollector(db)))

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}
	return byName
}

func gaugeValue(f *dto.MetricFamily, label, value string) float64 {
	for _, m := range f.GetMetric() {
		if label == "" {
			return m.GetGauge().GetValue()
		}
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == value {
				return m.GetGauge().GetValue()
			}
		}
	}
	return -1
}

func TestCollectorGathersAllFamilies(t *testing.T) {
	db := database.New()
	byName := gather(t, db)

	for _, name := range []string{
		"propgrid_properties",
		"propgrid_patterns",
		"propgrid_pattern_cache_operations_total",
		"propgrid_inputs",
		"propgrid_nodes_allocated_total",
		"propgrid_relationship_nodes",
	} {
		assert.Contains(t, byName, name)
	}
}

func TestCollectorReflectsEngineState(t *testing.T) {
	db := database.New()
	tc := db.NewContext()

	database.SetInput(db, sizeInput{}, 1, 5)
	database.SetInput(db, sizeInput{}, 2, 6)
	_, err := database.Query(db, doubler{calls: new(atomic.Int64)}, 1, tc)
	require.NoError(t, err)
	db.CreateNode()
	db.CreateNode()

	byName := gather(t, db)

	assert.Equal(t, float64(2), gaugeValue(byName["propgrid_inputs"], "", ""))
	assert.Equal(t, float64(1), gaugeValue(byName["propgrid_properties"], "phase", "evaluated"))
	assert.Equal(t, float64(0), gaugeValue(byName["propgrid_properties"], "phase", "computing"))
	assert.Equal(t, float64(1), gaugeValue(byName["propgrid_patterns"], "", ""))

	nodes := byName["propgrid_nodes_allocated_total"]
	require.NotNil(t, nodes)
	assert.Equal(t, float64(2), nodes.GetMetric()[0].GetCounter().GetValue())
}
