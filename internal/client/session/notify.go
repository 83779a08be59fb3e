package session

import "go.uber.org/zap"

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Notice é a notificação transitória mostrada ao usuário após uma ação
type Notice struct {
	Level   Level
	Title   string
	Message string
}

type Notifier interface {
	Notify(n Notice)
}

// ZapNotifier só registra as notificações no log
type ZapNotifier struct{ Log *zap.Logger }

func (z ZapNotifier) Notify(n Notice) {
	fields := []zap.Field{zap.String("title", n.Title), zap.String("message", n.Message)}
	switch n.Level {
	case LevelError:
		z.Log.Error("notice", fields...)
	case LevelWarn:
		z.Log.Warn("notice", fields...)
	default:
		z.Log.Info("notice", fields...)
	}
}

// NotifierFunc adapta uma função comum
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }
