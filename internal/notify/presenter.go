// Package notify holds the transient notification shown by every surface.
package notify

import (
	"sync"
	"time"
)

// Default timings of a notification.
const (
	DisplayDuration = 3 * time.Second
	ExitDuration    = 300 * time.Millisecond
)

// Phase is the visibility phase of a notification.
type Phase int

const (
	Visible Phase = iota
	// Leaving is the exit transition before removal.
	Leaving
)

func (p Phase) String() string {
	if p == Leaving {
		return "leaving"
	}
	return "visible"
}

// Notification is the message currently on screen.
type Notification struct {
	ID      uint64    `json:"id"`
	Message string    `json:"message"`
	Phase   Phase     `json:"-"`
	ShownAt time.Time `json:"shown_at"`
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithDurations overrides the display and exit durations.
func WithDurations(display, exit time.Duration) Option {
	return func(p *Presenter) {
		p.display = display
		p.exit = exit
	}
}

// Presenter shows at most one notification at a time. Showing a new one
// replaces the current one immediately.
type Presenter struct {
	display time.Duration
	exit    time.Duration

	mu       sync.Mutex
	current  *Notification
	seq      uint64
	timer    *time.Timer
	onChange []func()
}

func NewPresenter(opts ...Option) *Presenter {
	p := &Presenter{display: DisplayDuration, exit: ExitDuration}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnChange registers fn to run after every show, phase change and removal.
func (p *Presenter) OnChange(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = append(p.onChange, fn)
}

// Show displays msg, replacing any current notification.
func (p *Presenter) Show(msg string) Notification {
	p.mu.Lock()
	p.stopTimerLocked()
	p.seq++
	n := Notification{ID: p.seq, Message: msg, Phase: Visible, ShownAt: time.Now()}
	p.current = &n
	id := n.ID
	p.timer = time.AfterFunc(p.display, func() { p.leave(id) })
	p.mu.Unlock()

	p.changed()
	return n
}

// Current returns the notification on screen, if any.
func (p *Presenter) Current() (Notification, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Notification{}, false
	}
	return *p.current, true
}

// Dismiss removes the current notification without an exit transition.
func (p *Presenter) Dismiss() {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return
	}
	p.stopTimerLocked()
	p.current = nil
	p.mu.Unlock()

	p.changed()
}

func (p *Presenter) leave(id uint64) {
	p.mu.Lock()
	if p.current == nil || p.current.ID != id {
		p.mu.Unlock()
		return
	}
	p.current.Phase = Leaving
	p.timer = time.AfterFunc(p.exit, func() { p.remove(id) })
	p.mu.Unlock()

	p.changed()
}

func (p *Presenter) remove(id uint64) {
	p.mu.Lock()
	if p.current == nil || p.current.ID != id {
		p.mu.Unlock()
		return
	}
	p.current = nil
	p.timer = nil
	p.mu.Unlock()

	p.changed()
}

func (p *Presenter) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Presenter) changed() {
	p.mu.Lock()
	fns := append([]func(){}, p.onChange...)
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
