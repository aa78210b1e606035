package antrian

import "sync"

// NoticeKind names a user-facing event.
type NoticeKind int

const (
	NoticeConnectionLost NoticeKind = iota + 1
	NoticeConnectionRestored
	NoticeRateLimited
	NoticeRetryScheduled
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeConnectionLost:
		return "connection_lost"
	case NoticeConnectionRestored:
		return "connection_restored"
	case NoticeRateLimited:
		return "rate_limited"
	case NoticeRetryScheduled:
		return "retry_scheduled"
	default:
		return "unknown"
	}
}

// Notifier presents events to the user, typically as toasts. Implementations
// must be safe for concurrent use and should not block.
type Notifier interface {
	Notify(kind NoticeKind, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(kind NoticeKind, message string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(kind NoticeKind, message string) {
	f(kind, message)
}

// LogNotifier writes notices to a Logger.
type LogNotifier struct {
	Logger Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(kind NoticeKind, message string) {
	if n.Logger == nil {
		return
	}
	if kind == NoticeConnectionLost || kind == NoticeRateLimited {
		n.Logger.Warn(message, "notice", kind.String())
		return
	}
	n.Logger.Info(message, "notice", kind.String())
}

type nopNotifier struct{}

func (nopNotifier) Notify(NoticeKind, string) {}

// connectionTracker emits ConnectionLost on the first network failure and
// ConnectionRestored on the next success after it.
type connectionTracker struct {
	mu   sync.Mutex
	lost bool
}

// failed reports whether this failure newly lost the connection.
func (c *connectionTracker) failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lost {
		return false
	}
	c.lost = true
	return true
}

// succeeded reports whether this success restored a lost connection.
func (c *connectionTracker) succeeded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lost {
		return false
	}
	c.lost = false
	return true
}
