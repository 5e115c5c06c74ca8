package progress

import (
	"context"
	"sync"
	"time"

	"onlearn-learner/internal/domain"
)

// DefaultQuietWindow is the debounce window for partial progress updates.
const DefaultQuietWindow = time.Second

// Update is a scheduled partial-progress submission. The credential and
// course travel with the update so a timer never fires for a context other
// than the one current at the Schedule call.
type Update struct {
	Cred     domain.Credential
	CourseID uint
	ModuleID uint
	Percent  int
}

// Payload is the wire form of the update.
func (u Update) Payload() domain.ProgressUpdate {
	return domain.ProgressUpdate{
		LearnerID:          u.Cred.LearnerID,
		ModuleID:           u.ModuleID,
		CourseID:           u.CourseID,
		ProgressPercentage: u.Percent,
		IsCompleted:        u.Percent >= domain.CompletionThreshold,
	}
}

// SendFunc delivers a debounced update. It runs on the timer goroutine.
type SendFunc func(ctx context.Context, u Update)

type pending struct {
	seq    uint64
	timer  Timer
	update Update
}

// Debouncer coalesces updates per module: each Schedule resets the module's
// quiet window and only the last update of a window is sent. Across windows,
// updates are delivered in the order their windows close.
type Debouncer struct {
	mu      sync.Mutex
	clock   Clock
	window  time.Duration
	send    SendFunc
	pending map[uint]*pending
	seq     uint64
	stopped bool
}

func NewDebouncer(window time.Duration, send SendFunc, clock Clock) *Debouncer {
	if window <= 0 {
		window = DefaultQuietWindow
	}
	if clock == nil {
		clock = RealClock
	}
	return &Debouncer{
		clock:   clock,
		window:  window,
		send:    send,
		pending: make(map[uint]*pending),
	}
}

// Schedule replaces any pending update for the same module and restarts its window.
// It is a no-op once the debouncer is stopped.
func (d *Debouncer) Schedule(u Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if p, ok := d.pending[u.ModuleID]; ok {
		p.timer.Stop()
	}
	d.seq++
	seq := d.seq
	p := &pending{seq: seq, update: u}
	p.timer = d.clock.AfterFunc(d.window, func() { d.fire(u.ModuleID, seq) })
	d.pending[u.ModuleID] = p
}

// Cancel drops the pending update of one module, if any.
func (d *Debouncer) Cancel(moduleID uint) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[moduleID]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(d.pending, moduleID)
	return true
}

// CancelAll drops every pending update. Later Schedule calls still work.
func (d *Debouncer) CancelAll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropPending()
}

// Stop cancels every pending update and rejects further ones.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.dropPending()
}

func (d *Debouncer) dropPending() int {
	n := len(d.pending)
	for id, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, id)
	}
	return n
}

// Pending returns the number of modules with an update waiting to fire.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) fire(moduleID uint, seq uint64) {
	d.mu.Lock()
	p, ok := d.pending[moduleID]
	// a timer that lost the race with Stop/Cancel/Schedule must not send
	if d.stopped || !ok || p.seq != seq {
		d.mu.Unlock()
		return
	}
	delete(d.pending, moduleID)
	u := p.update
	d.mu.Unlock()

	d.send(context.Background(), u)
}
