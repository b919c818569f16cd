package log

import (
	"log/slog"
	"time"
)

func FormID[T ~string](id T) slog.Attr {
	return slog.String("form_id", string(id))
}

func EntryID[T ~string](id T) slog.Attr {
	return slog.String("entry_id", string(id))
}

func StepID[T ~string](id T) slog.Attr {
	return slog.String("step_id", string(id))
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Assignee(key string) slog.Attr {
	return slog.String("assignee", key)
}

func Recipient(addr string) slog.Attr {
	return slog.String("recipient", addr)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Int64("duration_ms", d.Milliseconds())
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}
