package telemetry_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/theraia/internal/telemetry"
)

// calibrateInto turns on feature events and returns the events path.
func calibrateInto(t *testing.T) string {
	t.Helper()
	path := observeInto(t)
	t.Setenv("THERAIA_CALIBRATION_MODE", "1")
	return path
}

func lastEvent(t *testing.T, path string) map[string]any {
	t.Helper()
	lines := readLines(t, path)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &m))
	return m
}

func userCounts(t *testing.T, m map[string]any) [4]float64 {
	t.Helper()
	u, ok := m["user"].(map[string]any)
	require.True(t, ok, "user field missing: %#v", m)
	return [4]float64{u["bytes"].(float64), u["runes"].(float64), u["words"].(float64), u["lines"].(float64)}
}

func TestEmitLocalFeatures_Counts(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want [4]float64 // bytes, runes, words, lines
	}{
		{"empty", "", [4]float64{0, 0, 0, 0}},
		{"multibyte", "héllö 世界", [4]float64{14, 8, 2, 1}},
		{"trailing newline", "a\nb\n", [4]float64{4, 4, 2, 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := calibrateInto(t)
			ctx := telemetry.WithSessionID(telemetry.WithTurnID(context.Background(), "turn-1"), "sess-1")

			telemetry.EmitLocalFeatures(ctx, tc.in)

			m := lastEvent(t, path)
			assert.Equal(t, "local_features", m["event"])
			assert.Equal(t, "turn-1", m["turn_id"])
			assert.Equal(t, "sess-1", m["session_id"])
			assert.Equal(t, "1", m["features_version"])
			assert.Equal(t, tc.want, userCounts(t, m))
		})
	}
}

func TestEmitLocalFeatures_Gated(t *testing.T) {
	cases := map[string][2]string{
		"observe off":     {"1", "0"},
		"calibration off": {"0", "1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("THERAIA_ARTIFACTS_DIR", dir)
			t.Setenv("THERAIA_CALIBRATION_MODE", env[0])
			t.Setenv("THERAIA_OBSERVE_JSON", env[1])

			telemetry.EmitLocalFeatures(context.Background(), "I feel anxious")

			_, err := os.Stat(filepath.Join(dir, "events.jsonl"))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestEmitLocalFeatures_NeverCarriesText(t *testing.T) {
	path := calibrateInto(t)
	msg := "My sister and I argued\nagain"

	telemetry.EmitLocalFeatures(context.Background(), msg)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "sister")
	assert.NotContains(t, lastEvent(t, path), "text")
}

func TestEmitLocalFeatures_AppendsLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dir with spaces")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	t.Setenv("THERAIA_ARTIFACTS_DIR", dir)
	t.Setenv("THERAIA_OBSERVE_JSON", "1")
	t.Setenv("THERAIA_CALIBRATION_MODE", "1")

	telemetry.EmitLocalFeatures(context.Background(), "one")
	telemetry.EmitLocalFeatures(context.Background(), "two")

	b, err := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	require.NoError(t, err)
	assert.Len(t, readLines(t, filepath.Join(dir, "events.jsonl")), 2)
	assert.Equal(t, byte('\n'), b[len(b)-1])
}
