package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlearn-learner/internal/domain"
)

func newView() *domain.CourseView {
	return &domain.CourseView{
		Course:   &domain.Course{ID: 1},
		Enrolled: true,
		Modules: []domain.ModuleView{
			{Module: domain.Module{ID: 1, FilePath: "intro.mp4"}, Playable: true, ProgressPercentage: 40},
			{Module: domain.Module{ID: 2, FilePath: "slides.pdf"}},
		},
		Selected:       domain.Selection{Kind: domain.SelectModule, ModuleID: 1},
		CourseProgress: 20,
	}
}

func TestPlaybackPercent(t *testing.T) {
	p, err := PlaybackPercent(30, 120)
	require.NoError(t, err)
	assert.Equal(t, 25, p)

	p, err = PlaybackPercent(119.9, 120)
	require.NoError(t, err)
	assert.Equal(t, 99, p)

	p, err = PlaybackPercent(130, 120)
	require.NoError(t, err)
	assert.Equal(t, 100, p)

	_, err = PlaybackPercent(10, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidPlayback)
	_, err = PlaybackPercent(-1, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidPlayback)
}

func TestTrackerPauseAdvancesAndSchedules(t *testing.T) {
	d, clock, rec := newTestDebouncer()
	tr := NewTracker(d)
	view := newView()

	advanced, err := tr.Pause(view, cred, 60, 100)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, 60, view.Modules[0].ProgressPercentage)
	assert.Equal(t, 30, view.CourseProgress)
	assert.Equal(t, StatePaused, tr.State())

	clock.Advance(time.Second)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, Update{Cred: cred, CourseID: 1, ModuleID: 1, Percent: 60}, rec.calls[0].update)
}

func TestTrackerPauseNeverDecreases(t *testing.T) {
	d, clock, rec := newTestDebouncer()
	tr := NewTracker(d)
	view := newView()

	for _, pos := range []float64{10, 40, 39.9} {
		advanced, err := tr.Pause(view, cred, pos, 100)
		require.NoError(t, err)
		assert.False(t, advanced)
		assert.Equal(t, 40, view.Modules[0].ProgressPercentage)
	}
	clock.Advance(time.Second)
	assert.Empty(t, rec.calls)
}

func TestTrackerEndCompletesAndCancelsPartial(t *testing.T) {
	d, clock, rec := newTestDebouncer()
	tr := NewTracker(d)
	view := newView()

	_, err := tr.Pause(view, cred, 70, 100)
	require.NoError(t, err)

	update, err := tr.End(view, cred)
	require.NoError(t, err)
	require.NotNil(t, update)
	assert.Equal(t, domain.ProgressUpdate{LearnerID: 9, ModuleID: 1, CourseID: 1, ProgressPercentage: 100, IsCompleted: true}, *update)
	assert.Equal(t, 100, view.Modules[0].ProgressPercentage)
	assert.True(t, view.Modules[0].IsCompleted)
	assert.Equal(t, 50, view.CourseProgress)

	clock.Advance(time.Second)
	assert.Empty(t, rec.calls)

	again, err := tr.End(view, cred)
	require.NoError(t, err)
	assert.Nil(t, again)

	// still complete after later samples
	_, err = tr.Pause(view, cred, 5, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, view.Modules[0].ProgressPercentage)
	assert.True(t, view.Modules[0].IsCompleted)
}

func TestTrackerEndFromAnyPriorPercentage(t *testing.T) {
	for _, prior := range []int{0, 37, 99, 100} {
		d, _, _ := newTestDebouncer()
		tr := NewTracker(d)
		view := newView()
		view.Modules[0].ProgressPercentage = prior

		_, err := tr.End(view, cred)
		require.NoError(t, err)
		assert.Equal(t, 100, view.Modules[0].ProgressPercentage)
		assert.True(t, view.Modules[0].IsCompleted)
	}
}

func TestTrackerRequiresPlayableSelection(t *testing.T) {
	d, _, _ := newTestDebouncer()
	tr := NewTracker(d)
	view := newView()

	view.Selected = domain.Selection{Kind: domain.SelectFeedback}
	_, err := tr.Pause(view, cred, 1, 2)
	assert.ErrorIs(t, err, domain.ErrNoModuleSelected)

	view.Selected = domain.Selection{Kind: domain.SelectModule, ModuleID: 2}
	_, err = tr.End(view, cred)
	assert.ErrorIs(t, err, domain.ErrNotPlayable)
}

func TestTrackerNewViewingAfterSelect(t *testing.T) {
	d, _, _ := newTestDebouncer()
	tr := NewTracker(d)
	view := newView()

	_, err := tr.End(view, cred)
	require.NoError(t, err)
	assert.Equal(t, StateEnded, tr.State())

	tr.Select(1)
	assert.Equal(t, StateIdle, tr.State())
	update, err := tr.End(view, cred)
	require.NoError(t, err)
	assert.NotNil(t, update)
}
