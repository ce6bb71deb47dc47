package telemetry

import (
	"context"

	"github.com/petasbytes/theraia/internal/metrics"
	"github.com/petasbytes/theraia/memory"
)

// EmitLocalFeatures records counts for one user message. No text is emitted.
func EmitLocalFeatures(ctx context.Context, user string) {
	if !(CalibrationModeEnabled() && ObserveEnabled()) {
		return
	}
	f := metrics.CountFeatures(user)
	EmitCtx(ctx, "local_features", map[string]any{
		"features_version": "1",
		"user":             featureFields(f),
	})
}

// EmitTranscriptFeatures records per-role totals for a whole transcript,
// emitted once when a session concludes.
func EmitTranscriptFeatures(ctx context.Context, msgs []memory.Message) {
	if !(CalibrationModeEnabled() && ObserveEnabled()) {
		return
	}
	t := metrics.CountTranscript(msgs)
	EmitCtx(ctx, "transcript_features", map[string]any{
		"features_version": "1",
		"messages":         t.Messages,
		"user":             featureFields(t.User),
		"assistant":        featureFields(t.Assistant),
	})
}

func featureFields(f metrics.Features) map[string]any {
	return map[string]any{
		"bytes": f.Bytes,
		"runes": f.Runes,
		"words": f.Words,
		"lines": f.Lines,
	}
}
