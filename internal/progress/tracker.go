package progress

import (
	"math"

	"onlearn-learner/internal/domain"
)

// PlaybackState of the current viewing. Playing is implicit and never tracked.
type PlaybackState int

const (
	StateIdle PlaybackState = iota
	StatePaused
	StateEnded
)

func (s PlaybackState) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	}
	return "idle"
}

// PlaybackPercent converts a playback position into a whole percentage.
func PlaybackPercent(position, duration float64) (int, error) {
	if math.IsNaN(position) || math.IsNaN(duration) || math.IsInf(position, 0) || math.IsInf(duration, 0) {
		return 0, domain.ErrInvalidPlayback
	}
	if duration <= 0 || position < 0 {
		return 0, domain.ErrInvalidPlayback
	}
	return clampPercent(int(math.Floor(position / duration * 100))), nil
}

// Tracker drives the playback state machine of the selected module of one
// view session. Callers serialize access; the tracker itself is not locked.
type Tracker struct {
	debouncer *Debouncer
	moduleID  uint
	state     PlaybackState
}

func NewTracker(d *Debouncer) *Tracker {
	return &Tracker{debouncer: d}
}

// Select starts a new viewing of the given module.
func (t *Tracker) Select(moduleID uint) {
	t.moduleID = moduleID
	t.state = StateIdle
}

func (t *Tracker) State() PlaybackState {
	return t.state
}

func (t *Tracker) playable(view *domain.CourseView) (*domain.ModuleView, error) {
	m := view.SelectedModule()
	if m == nil {
		return nil, domain.ErrNoModuleSelected
	}
	if !m.Playable {
		return nil, domain.ErrNotPlayable
	}
	if t.moduleID != m.ID {
		t.Select(m.ID)
	}
	return m, nil
}

// Pause samples the playback position. When the sampled percentage exceeds
// the stored one the view is updated in place and a partial update is
// scheduled; otherwise nothing changes. It reports whether progress advanced.
func (t *Tracker) Pause(view *domain.CourseView, cred domain.Credential, position, duration float64) (bool, error) {
	m, err := t.playable(view)
	if err != nil {
		return false, err
	}
	percent, err := PlaybackPercent(position, duration)
	if err != nil {
		return false, err
	}
	if t.state != StateEnded {
		t.state = StatePaused
	}
	if percent <= m.ProgressPercentage {
		return false, nil
	}

	m.ProgressPercentage = percent
	view.CourseProgress = Aggregate(view.Modules)
	t.debouncer.Schedule(Update{
		Cred:     cred,
		CourseID: courseID(view),
		ModuleID: m.ID,
		Percent:  percent,
	})
	return true, nil
}

// End completes the selected module locally and returns the completion to
// send right away. A pending partial for the module is dropped so it cannot
// land after the completion. A second End in the same viewing returns nil.
func (t *Tracker) End(view *domain.CourseView, cred domain.Credential) (*domain.ProgressUpdate, error) {
	m, err := t.playable(view)
	if err != nil {
		return nil, err
	}
	if t.state == StateEnded {
		return nil, nil
	}
	t.state = StateEnded

	m.ProgressPercentage = 100
	m.IsCompleted = true
	view.CourseProgress = Aggregate(view.Modules)
	t.debouncer.Cancel(m.ID)

	return &domain.ProgressUpdate{
		LearnerID:          cred.LearnerID,
		ModuleID:           m.ID,
		CourseID:           courseID(view),
		ProgressPercentage: 100,
		IsCompleted:        true,
	}, nil
}

func courseID(view *domain.CourseView) uint {
	if view.Course == nil {
		return 0
	}
	return view.Course.ID
}
