package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "storage:\n  driver: sqlite\n  path: " + filepath.Join(dir, "canchaya.db") + "\n" +
		"logging:\n  level: error\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestCLI_Version(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "canchaya version dev\n", out)
}

func TestCLI_Format(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"format", "price", "1500"}, "$1.500,00"},
		{[]string{"format", "compact", "2500000"}, "$2.5M"},
		{[]string{"format", "date", "2024-03-04", "--style", "FULL"}, "lunes, 4 de marzo de 2024"},
		{[]string{"format", "coords", "--", "-34.6037", "-58.3816"}, "-34.603700, -58.381600"},
	}
	for _, tt := range tests {
		out, err := runCLI(t, tt.args...)
		require.NoError(t, err, tt.args)
		assert.Equal(t, tt.want+"\n", out, tt.args)
	}

	_, err := runCLI(t, "format", "price", "abc")
	assert.ErrorContains(t, err, `invalid number "abc"`)
}

func TestCLI_AlertLifecycle(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCLI(t, "--config", cfg, "alerts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No alerts configured")

	out, err = runCLI(t, "--config", cfg, "alerts", "add",
		"--name", "Ocupación alta", "--metric", "occupancy_pct",
		"--threshold", "80", "--severity", "HIGH", "--cooldown", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "Alert created")
	assert.Contains(t, out, "occupancy_pct > 80")

	out, err = runCLI(t, "--config", cfg, "alerts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "READY")

	out, err = runCLI(t, "--config", cfg, "evaluate", "occupancy_pct", "95")
	require.NoError(t, err)
	assert.Contains(t, out, "✕ [HIGH] Ocupación alta")
	assert.Contains(t, out, "Fired 1 alert(s)")

	out, err = runCLI(t, "--config", cfg, "evaluate", "occupancy_pct", "99")
	require.NoError(t, err)
	assert.Contains(t, out, "No alerts fired")

	out, err = runCLI(t, "--config", cfg, "alerts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "COOLING_DOWN")

	_, err = runCLI(t, "--config", cfg, "alerts", "toggle", "missing-id")
	assert.ErrorContains(t, err, "not found")
}

func TestCLI_ImportAndReport(t *testing.T) {
	cfg := writeConfig(t)
	dir := filepath.Dir(cfg)

	yamlPath := filepath.Join(dir, "alerts.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
alerts:
  - name: Deuda alta
    metric_id: debt_total
    condition: between
    threshold: [100000, 500000]
    severity: MEDIUM
    channels: [IN_APP]
`), 0o644))

	out, err := runCLI(t, "--config", cfg, "alerts", "import", yamlPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 alert(s)")

	reports := filepath.Join(dir, "reports")
	require.NoError(t, os.Mkdir(reports, 0o755))
	out, err = runCLI(t, "--config", cfg, "report", "--format", "html", "--out", reports)
	require.NoError(t, err)
	assert.Contains(t, out, "Report written to")

	entries, err := os.ReadDir(reports)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	content, err := os.ReadFile(filepath.Join(reports, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "debt_total")

	_, err = runCLI(t, "--config", cfg, "report", "--format", "pdf")
	assert.ErrorContains(t, err, "not implemented")

	out, err = runCLI(t, "--config", cfg, "report", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "html")
	assert.Contains(t, out, "pdf")
}

func TestCLI_Ephemeral(t *testing.T) {
	cfg := writeConfig(t)
	t.Cleanup(func() { ephemeral = false })

	out, err := runCLI(t, "--config", cfg, "--ephemeral", "evaluate", "occupancy_pct", "95")
	require.NoError(t, err)
	assert.Contains(t, out, "No alerts fired")

	_, err = os.Stat(filepath.Join(filepath.Dir(cfg), "canchaya.db"))
	assert.True(t, os.IsNotExist(err))
}
