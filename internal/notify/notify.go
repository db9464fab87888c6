// Package notify delivers one discrete notification per user-visible
// outcome: a short title plus an optional detail line.
package notify

import (
	"fmt"
	"io"
	"sync"
)

// Level classifies a notification.
type Level uint8

// Levels.
const (
	Info Level = iota
	Success
	Failure
)

func (l Level) icon() string {
	switch l {
	case Success:
		return "✅"
	case Failure:
		return "❌"
	default:
		return "ℹ️"
	}
}

// Notification is one message to the user.
type Notification struct {
	Level  Level
	Title  string
	Detail string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(n Notification)
}

// Console writes notifications as single lines.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole writes to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Notify implements Notifier.
func (c *Console) Notify(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n.Detail != "" {
		fmt.Fprintf(c.w, "%s %s: %s\n", n.Level.icon(), n.Title, n.Detail)
		return
	}
	fmt.Fprintf(c.w, "%s %s\n", n.Level.icon(), n.Title)
}

// Desktop raises an OS notification. Delivery is fire-and-forget.
type Desktop struct {
	App string
}

// Notify implements Notifier.
func (d Desktop) Notify(n Notification) {
	app := d.App
	if app == "" {
		app = "coinforge"
	}
	sendOSNotification(app, n.Title, n.Detail)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(n Notification) {
	for _, x := range m {
		x.Notify(n)
	}
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu  sync.Mutex
	All []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.All = append(r.All, n)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.All) == 0 {
		return Notification{}, false
	}
	return r.All[len(r.All)-1], true
}
