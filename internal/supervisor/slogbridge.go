package supervisor

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// zerologToSlog adapts a zerolog.Logger to the *slog.Logger sutureslog
// expects, so supervisor events land in the same structured log stream
// as the rest of the kernel rather than opening a second logging path.
func zerologToSlog(l zerolog.Logger) *slog.Logger {
	return slog.New(&zerologHandler{logger: l})
}

type zerologHandler struct {
	logger zerolog.Logger
	attrs  []slog.Attr
}

func (h *zerologHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.GetLevel() <= zerologLevel(level)
}

func (h *zerologHandler) Handle(_ context.Context, record slog.Record) error {
	evt := zerologEvent(h.logger, record.Level)
	for _, a := range h.attrs {
		evt = evt.Interface(a.Key, a.Value.Any())
	}
	record.Attrs(func(a slog.Attr) bool {
		evt = evt.Interface(a.Key, a.Value.Any())
		return true
	})
	evt.Msg(record.Message)
	return nil
}

func (h *zerologHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &zerologHandler{logger: h.logger, attrs: merged}
}

func (h *zerologHandler) WithGroup(name string) slog.Handler {
	return &zerologHandler{logger: h.logger.With().Str("group", name).Logger(), attrs: h.attrs}
}

func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

func zerologEvent(l zerolog.Logger, level slog.Level) *zerolog.Event {
	switch {
	case level >= slog.LevelError:
		return l.Error()
	case level >= slog.LevelWarn:
		return l.Warn()
	case level >= slog.LevelInfo:
		return l.Info()
	default:
		return l.Debug()
	}
}
