package telemetry

import "os"

// Startup values. The accessors can switch a feature on mid-run through the
// environment, never off.
var (
	calibrationAtStart bool
	observeAtStart     bool
)

func init() {
	calibrationAtStart = os.Getenv("THERAIA_CALIBRATION_MODE") == "1"

	// Observe follows calibration unless THERAIA_OBSERVE_JSON is set explicitly.
	if v, ok := os.LookupEnv("THERAIA_OBSERVE_JSON"); ok {
		observeAtStart = v == "1"
	} else {
		observeAtStart = calibrationAtStart
	}
}

// CalibrationModeEnabled reports whether per-message text features are emitted.
// They are used to tune the history budget.
func CalibrationModeEnabled() bool {
	return calibrationAtStart || os.Getenv("THERAIA_CALIBRATION_MODE") == "1"
}

// ObserveEnabled reports whether JSONL emission is enabled.
func ObserveEnabled() bool {
	return observeAtStart || os.Getenv("THERAIA_OBSERVE_JSON") == "1"
}

// ArtifactsDir is where events.jsonl is written.
func ArtifactsDir() string {
	if d := os.Getenv("THERAIA_ARTIFACTS_DIR"); d != "" {
		return d
	}
	return ".theraia"
}
