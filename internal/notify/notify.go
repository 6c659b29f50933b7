// Package notify carries transient user-facing messages (toasts) raised by
// the cart engine, such as a failed sync or an item saved locally.
package notify

import (
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Level is the severity of a notification.
type Level int

const (
	Success Level = iota
	Error
)

func (l Level) String() string {
	if l == Error {
		return "error"
	}
	return "success"
}

// Notifier shows a short-lived message to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// Func adapts a plain function to Notifier.
type Func func(level Level, message string)

func (f Func) Notify(level Level, message string) { f(level, message) }

// Discard drops every message.
var Discard Notifier = Func(func(Level, string) {})

// Writer prints notifications to w, one per line.
func Writer(w io.Writer) Notifier {
	return Func(func(level Level, message string) {
		fmt.Fprintf(w, "[%s] %s\n", level, message)
	})
}

// Log records notifications on a zap logger.
func Log(log *zap.Logger) Notifier {
	return Func(func(level Level, message string) {
		if level == Error {
			log.Warn("notification", zap.String("message", message))
			return
		}
		log.Info("notification", zap.String("message", message))
	})
}
