package rtsploadtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadScenarioAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: rtsp://127.0.0.1:8554/stream\n"), 0o644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	require.Equal(t, 1, sc.Readers)
	require.Equal(t, "udp", sc.Transport)
}

func TestLoadScenarioRejectsMissingURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte("readers: 5\n"), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
}
