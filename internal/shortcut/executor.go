package shortcut

import "sync"

// Executor runs observer callbacks on the delivery context the observer
// expects.
type Executor interface {
	Execute(fn func())
}

// SerialExecutor delivers callbacks one at a time on a dedicated goroutine,
// the service's stand-in for a UI-affinity main thread.
type SerialExecutor struct {
	fns  chan func()
	done chan struct{}
	once sync.Once
}

// NewSerialExecutor creates and starts a serial executor.
func NewSerialExecutor() *SerialExecutor {
	s := &SerialExecutor{
		fns:  make(chan func(), 64),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Execute queues fn for sequential execution. Dropped if the executor is
// closed.
func (s *SerialExecutor) Execute(fn func()) {
	select {
	case s.fns <- fn:
	case <-s.done:
	}
}

// Close stops the executor. Queued callbacks may be dropped.
func (s *SerialExecutor) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *SerialExecutor) loop() {
	for {
		select {
		case fn := <-s.fns:
			fn()
		case <-s.done:
			return
		}
	}
}
