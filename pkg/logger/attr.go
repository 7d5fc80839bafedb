package logger

import (
	"log/slog"

	"github.com/google/uuid"
)

// Error records err under "error". A nil error yields an empty Attr, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func AccountID(id uuid.UUID) slog.Attr {
	return slog.String("account_id", id.String())
}

func DeviceID(id uuid.UUID) slog.Attr {
	return slog.String("device_id", id.String())
}

func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

// Component names the subsystem emitting the record, e.g. "scheduler".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
