package helpers

import (
	"sync/atomic"

	"github.com/m3rciful/storybot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// Deliver runs an outbound call through the dispatcher and waits for it, so transient
// network failures are retried and message order within the update is kept.
// Without a dispatcher the call runs directly.
func Deliver(c tele.Context, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}
	return disp.Do(BuildContext(c), action, endpoint, run)
}
