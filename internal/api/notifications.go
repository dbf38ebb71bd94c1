package api

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Signal file names dropped into the signals directory by an operator.
const (
	SignalKill  = "kill"
	SignalPause = "pause"
)

// pausePoll is how often WaitWhilePaused re-checks the pause file.
const pausePoll = 500 * time.Millisecond

// NotificationManager watches <stateDir>/signals for operator kill and pause
// files so a long-running conversation can be stopped or held from outside
// the process.
type NotificationManager struct {
	signalsDir string

	mu          sync.RWMutex
	stopSignal  bool
	pauseSignal bool
	onStop      []func()

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// NewNotificationManager creates the signals directory and starts watching it.
// If the watcher cannot start, ShouldStop and ShouldPause fall back to
// checking the files directly.
func NewNotificationManager(stateDir string) (*NotificationManager, error) {
	signalsDir := filepath.Join(stateDir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	nm := &NotificationManager{
		signalsDir: signalsDir,
		done:       make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nm, nil
	}
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		return nm, nil
	}
	nm.watcher = watcher

	go nm.watchSignals()

	return nm, nil
}

// watchSignals monitors the signals directory for kill/pause files.
func (nm *NotificationManager) watchSignals() {
	for {
		select {
		case <-nm.done:
			return
		case event, ok := <-nm.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				if event.Op&fsnotify.Remove != 0 && filepath.Base(event.Name) == SignalPause {
					nm.mu.Lock()
					nm.pauseSignal = false
					nm.mu.Unlock()
				}
				continue
			}
			switch filepath.Base(event.Name) {
			case SignalKill:
				nm.markStopped()
			case SignalPause:
				nm.mu.Lock()
				nm.pauseSignal = true
				nm.mu.Unlock()
			}
		case <-nm.watcher.Errors:
			// Keep watching; ShouldStop re-checks the file directly.
		}
	}
}

// markStopped sets the stop flag and fires OnStop callbacks exactly once.
func (nm *NotificationManager) markStopped() {
	nm.mu.Lock()
	if nm.stopSignal {
		nm.mu.Unlock()
		return
	}
	nm.stopSignal = true
	callbacks := append([]func(){}, nm.onStop...)
	nm.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// OnStop registers fn to run when a kill signal arrives.
func (nm *NotificationManager) OnStop(fn func()) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.onStop = append(nm.onStop, fn)
}

// CancelOnKill returns a context cancelled when a kill signal arrives.
func (nm *NotificationManager) CancelOnKill(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	nm.OnStop(cancel)
	if nm.ShouldStop() {
		cancel()
	}
	return ctx, cancel
}

// ShouldStop returns true if a stop signal has been received.
func (nm *NotificationManager) ShouldStop() bool {
	if _, err := os.Stat(filepath.Join(nm.signalsDir, SignalKill)); err == nil {
		nm.markStopped()
	}

	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.stopSignal
}

// ShouldPause returns true while the pause file exists.
func (nm *NotificationManager) ShouldPause() bool {
	_, err := os.Stat(filepath.Join(nm.signalsDir, SignalPause))
	paused := err == nil

	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.pauseSignal = paused
	return nm.pauseSignal
}

// WaitWhilePaused blocks until the pause file is removed or ctx is done.
func (nm *NotificationManager) WaitWhilePaused(ctx context.Context) error {
	for nm.ShouldPause() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pausePoll):
		}
	}
	return nil
}

// SendKill creates a kill signal file.
func (nm *NotificationManager) SendKill() error {
	path := filepath.Join(nm.signalsDir, SignalKill)
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates a pause signal file.
func (nm *NotificationManager) SendPause() error {
	path := filepath.Join(nm.signalsDir, SignalPause)
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearSignals removes all signal files and resets signal state.
func (nm *NotificationManager) ClearSignals() {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	nm.stopSignal = false
	nm.pauseSignal = false

	os.Remove(filepath.Join(nm.signalsDir, SignalKill))
	os.Remove(filepath.Join(nm.signalsDir, SignalPause))
}

// SignalsDir returns the watched directory.
func (nm *NotificationManager) SignalsDir() string {
	return nm.signalsDir
}

// Close shuts down the notification manager.
func (nm *NotificationManager) Close() {
	nm.once.Do(func() {
		close(nm.done)
		if nm.watcher != nil {
			nm.watcher.Close()
		}
	})
}
