package utils

import (
	"log/slog"
	"strings"
)

// LogEvent writes a standardized line with module/action/request_id.
// Avoid logging sensitive payload; message should be summarized.
func LogEvent(requestID, module, action, message string) {
	slog.Info(message, eventAttrs(requestID, module, action)...)
}

// LogWarn is LogEvent at warn level, used for rows skipped or left for reconciliation.
func LogWarn(requestID, module, action, message string) {
	slog.Warn(message, eventAttrs(requestID, module, action)...)
}

func LogError(requestID, module, action string, err error) {
	attrs := append(eventAttrs(requestID, module, action), "error", err)
	slog.Error(action+" failed", attrs...)
}

func eventAttrs(requestID, module, action string) []any {
	return []any{
		"module", strings.ToUpper(module),
		"action", action,
		"request_id", strings.TrimSpace(requestID),
	}
}
