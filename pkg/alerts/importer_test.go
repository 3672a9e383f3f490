package alerts_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canchaya/canchaya/pkg/alerts"
	"github.com/canchaya/canchaya/pkg/model"
	"github.com/canchaya/canchaya/pkg/storage"
)

const sampleYAML = `
alerts:
  - name: Ocupación alta
    metric_id: occupancy_pct
    condition: ">"
    threshold: 80
    severity: HIGH
    channels: [IN_APP, EMAIL]
    recipients: [admin@canchaya.app]
    cooldown_minutes: 30
  - name: Temperatura de pista
    metric_id: court_temp
    condition: between
    threshold: [40, 60]
    severity: LOW
    channels: [PUSH]
    active: false
`

func TestLoadYAML(t *testing.T) {
	defs, err := alerts.LoadYAML(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	first := defs[0]
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "occupancy_pct", first.MetricID)
	assert.Equal(t, model.ConditionGreater, first.Condition)
	v, ok := first.Threshold.Scalar()
	require.True(t, ok)
	assert.Equal(t, 80.0, v)
	assert.True(t, first.Active, "active by default")
	assert.Equal(t, []model.Channel{model.ChannelInApp, model.ChannelEmail}, first.Channels)

	second := defs[1]
	lo, hi, ok := second.Threshold.Bounds()
	require.True(t, ok)
	assert.Equal(t, 40.0, lo)
	assert.Equal(t, 60.0, hi)
	assert.False(t, second.Active)
}

func TestLoadYAML_Invalid(t *testing.T) {
	_, err := alerts.LoadYAML(strings.NewReader(`
alerts:
  - name: sin canales
    metric_id: m
    condition: ">"
    threshold: 1
    severity: LOW
`))
	assert.ErrorContains(t, err, "alert 1")

	_, err = alerts.LoadYAML(strings.NewReader("alerts: [unclosed"))
	assert.ErrorContains(t, err, "parse alerts yaml")

	defs, err := alerts.LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	defs, err := alerts.LoadYAMLFile(path)
	require.NoError(t, err)

	store := alerts.NewKVStore(storage.NewMemory())
	n, err := alerts.Import(context.Background(), store, defs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = alerts.LoadYAMLFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
