package event

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogEntry is the payload of NameSystemLog.
type LogEntry struct {
	Event string
	Data  any
	Time  time.Time
	Level zapcore.Level
}

// LevelFor derives a log level from an event name.
func LevelFor(name string) zapcore.Level {
	switch {
	case strings.Contains(name, "error"), strings.Contains(name, "critical"):
		return zapcore.ErrorLevel
	case strings.Contains(name, "warning"):
		return zapcore.WarnLevel
	case strings.Contains(name, "system"), strings.Contains(name, "performance"):
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func (b *Bus) journal(ctx context.Context, evt Event) {
	if evt.Name == NameSystemLog {
		return
	}

	entry := LogEntry{
		Event: evt.Name,
		Data:  evt.Data,
		Time:  evt.Time,
		Level: LevelFor(evt.Name),
	}

	if ce := b.logger.Check(entry.Level, "event"); ce != nil {
		ce.Write(zap.String("event", evt.Name), zap.Any("data", evt.Data))
	}
	b.Emit(ctx, NameSystemLog, entry)
}
