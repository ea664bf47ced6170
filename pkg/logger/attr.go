package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func AccountID(id string) slog.Attr {
	return slog.String("account_id", id)
}

func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

func PlanID(id string) slog.Attr {
	return slog.String("plan_id", id)
}

func InviteID(id string) slog.Attr {
	return slog.String("invite_id", id)
}

// EventID records a provider event or transaction id.
func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}
