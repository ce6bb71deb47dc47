package telemetry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/petasbytes/theraia/internal/log"
)

// writeMu serializes appends from concurrent sessions.
var writeMu sync.Mutex

// Emit appends one JSON line to <ArtifactsDir>/events.jsonl when observation
// is enabled. It adds an RFC3339Nano time and the event name; fields is not modified.
func Emit(name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}

	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	b, err := json.Marshal(m)
	if err != nil {
		log.Warn().Err(err).Str("event", name).Msg("telemetry: marshal")
		return
	}

	writeMu.Lock()
	defer writeMu.Unlock()

	dir := ArtifactsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("telemetry: mkdir")
		return
	}

	path := filepath.Join(dir, "events.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("telemetry: open")
		return
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("telemetry: write")
	}
}

// EmitCtx is Emit with session_id and turn_id taken from ctx.
func EmitCtx(ctx context.Context, name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}
	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	if id, ok := SessionIDFromContext(ctx); ok {
		m["session_id"] = id
	}
	if id, ok := TurnIDFromContext(ctx); ok {
		m["turn_id"] = id
	}
	Emit(name, m)
}
