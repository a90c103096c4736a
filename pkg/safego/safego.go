package safego

import (
	"go.uber.org/zap"
)

// Go runs fn on a new goroutine with panic recovery. A panic is logged with
// the goroutine name and stack instead of taking down the process. Used for
// the long-lived background loops (bot polling, config watcher) where a
// crash must not kill the HTTP API.
func Go(logger *zap.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Goroutine panicked",
					zap.String("goroutine", name),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
			}
		}()
		fn()
	}()
}
