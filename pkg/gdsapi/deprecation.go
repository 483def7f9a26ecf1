package gdsapi

import (
	"sync"
)

var deprecationNotices sync.Map

// Deprecated wraps fn under its old name. The first call through the
// wrapper logs a warning naming the replacement; every call delegates.
func Deprecated[In, Out any](logger Logger, oldName, newName string, fn func(In) Out) func(In) Out {
	return func(in In) Out {
		WarnDeprecated(logger, oldName, newName)

		return fn(in)
	}
}

// WarnDeprecated logs one warning per old name per process.
func WarnDeprecated(logger Logger, oldName, newName string) {
	if _, seen := deprecationNotices.LoadOrStore(oldName, struct{}{}); seen {
		return
	}

	if logger == nil {
		return
	}

	logger.Warn("deprecated method called", map[string]interface{}{
		"deprecated":  oldName,
		"replacement": newName,
	})
}

// ResetDeprecationNotices forgets which warnings have been emitted.
func ResetDeprecationNotices() {
	deprecationNotices.Range(func(key, _ any) bool {
		deprecationNotices.Delete(key)

		return true
	})
}
