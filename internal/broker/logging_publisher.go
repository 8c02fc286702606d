package broker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/miradorstack/mirador-rca/internal/result"
)

// LoggingPublisher is the process's default CausePublisher: since no
// concrete broker client is in scope, it logs each envelope at info
// level instead of sending it, mirroring a debug log of the cause
// message ahead of the real producer send.
type LoggingPublisher struct {
	Logger *slog.Logger
}

// NewLoggingPublisher constructs a LoggingPublisher; a nil logger
// falls back to slog.Default.
func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingPublisher{Logger: logger}
}

// Publish logs env as JSON; it never returns an error.
func (p *LoggingPublisher) Publish(ctx context.Context, env result.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		p.Logger.Warn("marshal cause envelope for logging failed", slog.Any("error", err))
		return nil
	}
	p.Logger.Info("cause envelope", slog.String("event_id", env.EventID), slog.String("payload", string(raw)))
	return nil
}
