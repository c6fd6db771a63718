package streamutil

import (
	"sync"
	"sync/atomic"
	"time"
)

// IdleWatcher detects stalled streams with one shared goroutine instead of a
// timer per stream.
type IdleWatcher struct {
	mu       sync.Mutex
	streams  map[uint64]*watchedStream
	nextID   atomic.Uint64
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type watchedStream struct {
	lastActivity atomic.Int64
	timeout      time.Duration
	onIdle       func()
	fired        atomic.Bool
}

// NewIdleWatcher starts a watcher that checks every checkInterval.
func NewIdleWatcher(checkInterval time.Duration) *IdleWatcher {
	if checkInterval <= 0 {
		checkInterval = 10 * time.Second
	}
	w := &IdleWatcher{
		streams:  make(map[uint64]*watchedStream),
		interval: checkInterval,
		stopCh:   make(chan struct{}),
	}
	w.wg.Add(1)
	go w.watchLoop()
	return w
}

// Register watches a stream. touch records activity; done unregisters and
// must be called when the stream ends. onIdle runs at most once, after
// timeout elapses with no touch.
func (w *IdleWatcher) Register(timeout time.Duration, onIdle func()) (touch func(), done func()) {
	id := w.nextID.Add(1)
	stream := &watchedStream{timeout: timeout, onIdle: onIdle}
	stream.lastActivity.Store(time.Now().UnixNano())

	w.mu.Lock()
	if w.streams != nil {
		w.streams[id] = stream
	}
	w.mu.Unlock()

	touch = func() {
		stream.lastActivity.Store(time.Now().UnixNano())
	}
	var once sync.Once
	done = func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.streams, id)
			w.mu.Unlock()
		})
	}
	return touch, done
}

func (w *IdleWatcher) watchLoop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case now := <-ticker.C:
			w.checkStreams(now)
		}
	}
}

func (w *IdleWatcher) checkStreams(now time.Time) {
	w.mu.Lock()
	toCheck := make([]*watchedStream, 0, len(w.streams))
	for _, s := range w.streams {
		toCheck = append(toCheck, s)
	}
	w.mu.Unlock()

	// callbacks run without the lock held
	for _, s := range toCheck {
		idle := time.Duration(now.UnixNano() - s.lastActivity.Load())
		if idle > s.timeout && s.fired.CompareAndSwap(false, true) && s.onIdle != nil {
			s.onIdle()
		}
	}
}

// Stop ends the watch loop. Registered streams are forgotten without their
// callbacks firing.
func (w *IdleWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.mu.Lock()
		w.streams = nil
		w.mu.Unlock()
	})
}

func (w *IdleWatcher) ActiveCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.streams)
}

var defaultWatcher = sync.OnceValue(func() *IdleWatcher {
	return NewIdleWatcher(5 * time.Second)
})

// DefaultIdleWatcher returns the process-wide watcher.
func DefaultIdleWatcher() *IdleWatcher {
	return defaultWatcher()
}
