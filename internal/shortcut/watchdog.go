package shortcut

import (
	"sync"
	"time"
)

// watchdog is a one-shot cancellable timer. The pipeline keeps a single
// current handle per query generation, replacing and cancelling the previous
// one, so a cycle's watchdog can never fire twice.
type watchdog struct {
	timer *time.Timer

	mu       sync.Mutex
	fired    bool
	stopped  bool
	onExpire func()
}

func newWatchdog(d time.Duration, onExpire func()) *watchdog {
	w := &watchdog{onExpire: onExpire}
	w.timer = time.AfterFunc(d, w.expire)
	return w
}

func (w *watchdog) expire() {
	w.mu.Lock()
	if w.stopped || w.fired {
		w.mu.Unlock()
		return
	}
	w.fired = true
	fn := w.onExpire
	w.mu.Unlock()

	fn()
}

// cancel stops the timer; a cancelled watchdog never invokes its callback.
func (w *watchdog) cancel() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.timer.Stop()
}
