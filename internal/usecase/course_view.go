package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"onlearn-learner/internal/domain"
	"onlearn-learner/internal/progress"
	"onlearn-learner/pkg/logging"
)

type CourseViewConfig struct {
	QuietWindow time.Duration
	Clock       progress.Clock // nil uses the wall clock
}

type courseViewUsecase struct {
	lms          domain.LMSClient
	reconciler   *Reconciler
	sessions     *SessionStore
	snapshotRepo domain.SnapshotRepository // optional
	activityRepo domain.ActivityRepository // optional
	cfg          CourseViewConfig
	logger       *zap.Logger
}

func NewCourseViewUsecase(
	lms domain.LMSClient,
	reconciler *Reconciler,
	sessions *SessionStore,
	sr domain.SnapshotRepository,
	ar domain.ActivityRepository,
	cfg CourseViewConfig,
	logger *zap.Logger,
) domain.CourseViewUsecase {
	return &courseViewUsecase{
		lms:          lms,
		reconciler:   reconciler,
		sessions:     sessions,
		snapshotRepo: sr,
		activityRepo: ar,
		cfg:          cfg,
		logger:       logger,
	}
}

func keyOf(cred domain.Credential, courseID uint) sessionKey {
	return sessionKey{learnerID: cred.LearnerID, courseID: courseID}
}

// ========== LOADING ==========

func (uc *courseViewUsecase) Reconcile(ctx context.Context, cred domain.Credential, courseID uint) (*domain.CourseView, error) {
	return uc.reconciler.Reconcile(ctx, cred, courseID)
}

// Open enters the course view, or reloads it when already open.
func (uc *courseViewUsecase) Open(ctx context.Context, cred domain.Credential, courseID uint) (*domain.CourseView, error) {
	log := uc.log(ctx, cred, courseID)
	s := uc.sessions.getOrCreate(keyOf(cred, courseID), uc.newSession)

	s.mu.Lock()
	s.cred = cred
	uc.sessions.touch(s)
	s.mu.Unlock()

	view, err := uc.reconciler.Reconcile(ctx, cred, courseID)
	if err != nil {
		log.Warn("course load failed, keeping prior view", zap.Error(err))
		return nil, &domain.LoadError{Err: err, Prior: uc.prior(ctx, s)}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return view.Clone(), nil
	}
	s.view = view
	s.tracker.Select(view.Selected.ModuleID)
	out := view.Clone()
	s.mu.Unlock()

	if uc.snapshotRepo != nil {
		if err := uc.snapshotRepo.Save(ctx, cred.LearnerID, courseID, out); err != nil {
			log.Warn("failed to save view snapshot", zap.Error(err))
		}
	}
	return out, nil
}

// prior returns the in-memory view, else the stored snapshot, else nil.
func (uc *courseViewUsecase) prior(ctx context.Context, s *viewSession) *domain.CourseView {
	s.mu.Lock()
	view := s.view.Clone()
	s.mu.Unlock()
	if view != nil || uc.snapshotRepo == nil {
		return view
	}

	stored, err := uc.snapshotRepo.Get(ctx, s.key.learnerID, s.key.courseID)
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			uc.logger.Warn("failed to read view snapshot", zap.Error(err))
		}
		return nil
	}
	return stored
}

func (uc *courseViewUsecase) Get(ctx context.Context, cred domain.Credential, courseID uint) (*domain.CourseView, error) {
	var out *domain.CourseView
	err := uc.withView(cred, courseID, func(s *viewSession) error {
		out = s.view.Clone()
		return nil
	})
	return out, err
}

// Close leaves the course view. Pending partial updates are dropped.
func (uc *courseViewUsecase) Close(ctx context.Context, cred domain.Credential, courseID uint) error {
	if uc.sessions.remove(keyOf(cred, courseID)) {
		uc.log(ctx, cred, courseID).Debug("course view closed")
	}
	return nil
}

// ========== SELECTION ==========

func (uc *courseViewUsecase) SelectModule(ctx context.Context, cred domain.Credential, courseID, moduleID uint) (*domain.CourseView, error) {
	var out *domain.CourseView
	err := uc.withView(cred, courseID, func(s *viewSession) error {
		if s.view.Module(moduleID) == nil {
			return domain.ErrModuleNotFound
		}
		s.view.Selected = domain.Selection{Kind: domain.SelectModule, ModuleID: moduleID}
		s.tracker.Select(moduleID)
		out = s.view.Clone()
		return nil
	})
	return out, err
}

func (uc *courseViewUsecase) SelectFeedback(ctx context.Context, cred domain.Credential, courseID uint) (*domain.CourseView, error) {
	var out *domain.CourseView
	err := uc.withView(cred, courseID, func(s *viewSession) error {
		if !s.view.Enrolled {
			return domain.ErrNotEnrolled
		}
		s.view.Selected = domain.Selection{Kind: domain.SelectFeedback}
		s.tracker.Select(0)
		out = s.view.Clone()
		return nil
	})
	return out, err
}

// ========== PLAYBACK ==========

// Pause samples the playback position of the selected module. Positions that
// do not advance the stored percentage, and unusable samples, change nothing.
func (uc *courseViewUsecase) Pause(ctx context.Context, cred domain.Credential, courseID uint, position, duration float64) (*domain.CourseView, error) {
	var out *domain.CourseView
	err := uc.withView(cred, courseID, func(s *viewSession) error {
		if !s.view.Enrolled {
			return domain.ErrNotEnrolled
		}
		advanced, err := s.tracker.Pause(s.view, cred, position, duration)
		if errors.Is(err, domain.ErrInvalidPlayback) {
			uc.log(ctx, cred, courseID).Debug("ignoring playback sample",
				zap.Float64("position", position), zap.Float64("duration", duration))
			err = nil
		}
		if err != nil {
			return err
		}
		if advanced {
			uc.log(ctx, cred, courseID).Debug("module progress advanced",
				zap.Uint("module.id", s.view.Selected.ModuleID),
				zap.Int("course.progress", s.view.CourseProgress))
		}
		out = s.view.Clone()
		return nil
	})
	return out, err
}

// Ended completes the selected module and submits the completion right away.
// A failed submission is logged and the local completion is kept.
func (uc *courseViewUsecase) Ended(ctx context.Context, cred domain.Credential, courseID uint) (*domain.CourseView, error) {
	var (
		out    *domain.CourseView
		update *domain.ProgressUpdate
	)
	err := uc.withView(cred, courseID, func(s *viewSession) error {
		if !s.view.Enrolled {
			return domain.ErrNotEnrolled
		}
		var err error
		if update, err = s.tracker.End(s.view, cred); err != nil {
			return err
		}
		out = s.view.Clone()
		return nil
	})
	if err != nil || update == nil {
		return out, err
	}

	log := uc.log(ctx, cred, courseID).With(zap.Uint("module.id", update.ModuleID))
	activity := &domain.Activity{
		Type:      domain.ActivityModuleCompleted,
		LearnerID: cred.LearnerID,
		CourseID:  courseID,
		ModuleID:  update.ModuleID,
		Percent:   update.ProgressPercentage,
	}
	if err := uc.lms.CompleteProgress(ctx, cred, *update); err != nil {
		log.Error("failed to submit module completion", zap.Error(err))
		activity.Type = domain.ActivityCompletionFailed
		activity.Error = err.Error()
	} else {
		log.Info("module completed")
	}
	uc.journal(ctx, activity)
	return out, nil
}

// sendPartial delivers a debounced partial update, then refreshes the course
// aggregate from the server, falling back to the local one.
func (uc *courseViewUsecase) sendPartial(ctx context.Context, s *viewSession, u progress.Update) {
	log := uc.logger.With(
		zap.Uint("learner.id", u.Cred.LearnerID),
		zap.Uint("course.id", u.CourseID),
		zap.Uint("module.id", u.ModuleID),
		zap.Int("percent", u.Percent),
	)
	activity := &domain.Activity{
		Type:      domain.ActivityPartialSent,
		LearnerID: u.Cred.LearnerID,
		CourseID:  u.CourseID,
		ModuleID:  u.ModuleID,
		Percent:   u.Percent,
	}

	s.mu.Lock()
	live := !s.closed && s.view != nil && s.view.Enrolled
	s.mu.Unlock()
	if !live {
		log.Debug("dropping partial progress, course view closed or left")
		return
	}

	if err := uc.lms.UpdateProgress(ctx, u.Cred, u.Payload()); err != nil {
		log.Error("failed to submit partial progress", zap.Error(err))
		activity.Type = domain.ActivityPartialFailed
		activity.Error = err.Error()
		uc.journal(ctx, activity)
		return
	}
	log.Debug("partial progress submitted")
	uc.journal(ctx, activity)

	server, err := uc.lms.GetCourseProgress(ctx, u.Cred, u.CourseID)
	if err != nil {
		log.Debug("server course progress unavailable, using local aggregate", zap.Error(err))
		server = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.view == nil || !s.view.Enrolled {
		return
	}
	s.view.CourseProgress = progress.Authoritative(server, progress.Aggregate(s.view.Modules))
}

// ========== FEEDBACK ==========

func (uc *courseViewUsecase) SubmitFeedback(ctx context.Context, cred domain.Credential, courseID uint, input domain.FeedbackInput) (*domain.CourseView, error) {
	input, err := validateFeedback(input)
	if err != nil {
		return nil, err
	}

	err = uc.withView(cred, courseID, func(s *viewSession) error {
		if !s.view.Enrolled {
			return domain.ErrNotEnrolled
		}
		if s.view.HasFeedback {
			return domain.ErrFeedbackExists
		}
		if s.feedbackPending {
			return domain.ErrFeedbackPending
		}
		s.feedbackPending = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := uc.log(ctx, cred, courseID)
	feedback, err := uc.lms.SubmitFeedback(ctx, cred, courseID, input)
	if err != nil {
		log.Error("feedback submission failed", zap.Error(err))
		uc.clearFeedbackPending(cred, courseID)
		return nil, fmt.Errorf("submit feedback: %w", err)
	}
	uc.journal(ctx, &domain.Activity{
		Type:      domain.ActivityFeedbackSent,
		LearnerID: cred.LearnerID,
		CourseID:  courseID,
		Percent:   feedback.Rating,
	})

	var out *domain.CourseView
	err = uc.withView(cred, courseID, func(s *viewSession) error {
		s.view.Feedbacks = append(s.view.Feedbacks, *feedback)
		s.view.HasFeedback = true
		s.feedbackPending = false
		out = s.view.Clone()
		return nil
	})
	return out, err
}

// ========== ENROLLMENT ==========

func (uc *courseViewUsecase) Enroll(ctx context.Context, cred domain.Credential, courseID uint) (*domain.CourseView, error) {
	if s := uc.sessions.get(keyOf(cred, courseID)); s != nil {
		s.mu.Lock()
		enrolled := s.view != nil && s.view.Enrolled
		s.mu.Unlock()
		if enrolled {
			return nil, domain.ErrAlreadyEnrolled
		}
	}

	if err := uc.lms.Enroll(ctx, cred, courseID); err != nil {
		return nil, fmt.Errorf("enroll: %w", err)
	}
	uc.log(ctx, cred, courseID).Info("learner enrolled")
	return uc.Open(ctx, cred, courseID)
}

func (uc *courseViewUsecase) Unenroll(ctx context.Context, cred domain.Credential, courseID uint) (*domain.CourseView, error) {
	enrollments, err := uc.lms.GetMyEnrollments(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("fetch enrollments: %w", err)
	}
	enrollment := findEnrollment(enrollments, courseID)
	if enrollment == nil {
		return nil, domain.ErrNotEnrolled
	}

	if err := uc.lms.Unenroll(ctx, cred, enrollment.EnrollmentID); err != nil {
		return nil, fmt.Errorf("unenroll: %w", err)
	}
	uc.log(ctx, cred, courseID).Info("learner unenrolled", zap.Uint("enrollment.id", enrollment.EnrollmentID))
	uc.leave(cred, courseID)
	if uc.snapshotRepo != nil {
		if err := uc.snapshotRepo.Delete(ctx, cred.LearnerID, courseID); err != nil {
			uc.log(ctx, cred, courseID).Warn("failed to delete view snapshot", zap.Error(err))
		}
	}
	return uc.Open(ctx, cred, courseID)
}

// ========== HELPERS ==========

func (uc *courseViewUsecase) newSession(s *viewSession) {
	s.debouncer = progress.NewDebouncer(uc.cfg.QuietWindow, func(ctx context.Context, u progress.Update) {
		uc.sendPartial(ctx, s, u)
	}, uc.cfg.Clock)
	s.tracker = progress.NewTracker(s.debouncer)
}

// leave marks the open view as not enrolled and drops its pending partial updates.
func (uc *courseViewUsecase) leave(cred domain.Credential, courseID uint) {
	s := uc.sessions.get(keyOf(cred, courseID))
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.view != nil {
		s.view.Enrolled = false
	}
	s.mu.Unlock()
	s.debouncer.CancelAll()
}

func (uc *courseViewUsecase) clearFeedbackPending(cred domain.Credential, courseID uint) {
	if s := uc.sessions.get(keyOf(cred, courseID)); s != nil {
		s.mu.Lock()
		s.feedbackPending = false
		s.mu.Unlock()
	}
}

// withView runs fn under the session lock once the view is loaded.
func (uc *courseViewUsecase) withView(cred domain.Credential, courseID uint, fn func(s *viewSession) error) error {
	s := uc.sessions.get(keyOf(cred, courseID))
	if s == nil {
		return domain.ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.view == nil {
		return domain.ErrSessionNotFound
	}
	s.cred = cred
	uc.sessions.touch(s)
	return fn(s)
}

func (uc *courseViewUsecase) journal(ctx context.Context, activity *domain.Activity) {
	if uc.activityRepo == nil {
		return
	}
	if err := uc.activityRepo.Record(ctx, activity); err != nil {
		uc.logger.Warn("failed to record activity", zap.String("activity.type", string(activity.Type)), zap.Error(err))
	}
}

func (uc *courseViewUsecase) log(ctx context.Context, cred domain.Credential, courseID uint) *zap.Logger {
	return logging.FromContext(ctx, uc.logger).With(
		zap.Uint("learner.id", cred.LearnerID),
		zap.Uint("course.id", courseID),
	)
}
