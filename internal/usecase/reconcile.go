package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"onlearn-learner/internal/domain"
	"onlearn-learner/internal/progress"
	"onlearn-learner/pkg/logging"
	"onlearn-learner/pkg/utils"
)

// Reconciler assembles the course view model from the remote LMS.
type Reconciler struct {
	lms        domain.LMSClient
	uploadsURL string
	logger     *zap.Logger
	now        func() time.Time
}

func NewReconciler(lms domain.LMSClient, uploadsURL string, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		lms:        lms,
		uploadsURL: uploadsURL,
		logger:     logger,
		now:        time.Now,
	}
}

// Reconcile runs one full load pass. Module, progress and feedback are only
// fetched for enrolled learners; if any of them fails nothing is merged.
func (r *Reconciler) Reconcile(ctx context.Context, cred domain.Credential, courseID uint) (*domain.CourseView, error) {
	log := logging.FromContext(ctx, r.logger).With(
		zap.Uint("learner.id", cred.LearnerID),
		zap.Uint("course.id", courseID),
	)

	course, err := r.lms.GetCourse(ctx, cred, courseID)
	if err != nil {
		return nil, fmt.Errorf("fetch course: %w", err)
	}
	enrollments, err := r.lms.GetMyEnrollments(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("fetch enrollments: %w", err)
	}

	view := &domain.CourseView{
		Course:    course,
		Enrolled:  isEnrolled(enrollments, courseID),
		Modules:   []domain.ModuleView{},
		Feedbacks: []domain.Feedback{},
		LoadedAt:  r.now(),
	}
	if !view.Enrolled {
		log.Debug("learner not enrolled, skipping course content")
		return view, nil
	}

	var (
		modules   []domain.Module
		records   []domain.ProgressRecord
		feedbacks []domain.Feedback
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if modules, err = r.lms.GetModulesByCourse(gctx, cred, courseID); err != nil {
			return fmt.Errorf("fetch modules: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if records, err = r.lms.GetModuleProgress(gctx, cred, courseID); err != nil {
			return fmt.Errorf("fetch module progress: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if feedbacks, err = r.lms.GetFeedbackByCourse(gctx, cred, courseID); err != nil {
			return fmt.Errorf("fetch feedback: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.Modules = r.mergeProgress(modules, records)
	if len(view.Modules) > 0 {
		view.Selected = domain.Selection{Kind: domain.SelectModule, ModuleID: view.Modules[0].ID}
	}
	if feedbacks != nil {
		view.Feedbacks = feedbacks
	}
	view.HasFeedback = hasFeedbackFrom(view.Feedbacks, cred.LearnerID)

	local := progress.Aggregate(view.Modules)
	server, err := r.lms.GetCourseProgress(ctx, cred, courseID)
	if err != nil {
		log.Debug("server course progress unavailable, using local aggregate", zap.Error(err))
		server = nil
	}
	view.CourseProgress = progress.Authoritative(server, local)

	log.Debug("course view reconciled",
		zap.Int("modules", len(view.Modules)),
		zap.Int("course.progress", view.CourseProgress),
	)
	return view, nil
}

// mergeProgress annotates each module with the first progress record for it.
func (r *Reconciler) mergeProgress(modules []domain.Module, records []domain.ProgressRecord) []domain.ModuleView {
	byModule := make(map[uint]domain.ProgressRecord, len(records))
	for _, rec := range records {
		if _, seen := byModule[rec.ModuleID]; !seen {
			byModule[rec.ModuleID] = rec
		}
	}

	out := make([]domain.ModuleView, 0, len(modules))
	for _, m := range modules {
		mv := domain.ModuleView{
			Module:   m,
			FileURL:  utils.FileURL(r.uploadsURL, m.FilePath),
			Playable: utils.IsPlayable(m.FilePath),
		}
		if rec, ok := byModule[m.ID]; ok {
			mv.ProgressPercentage = rec.ProgressPercentage
			mv.IsCompleted = rec.IsCompleted
		}
		out = append(out, mv)
	}
	return out
}

func isEnrolled(enrollments []domain.Enrollment, courseID uint) bool {
	return findEnrollment(enrollments, courseID) != nil
}

func findEnrollment(enrollments []domain.Enrollment, courseID uint) *domain.Enrollment {
	for i := range enrollments {
		if enrollments[i].Course() == courseID {
			return &enrollments[i]
		}
	}
	return nil
}

func hasFeedbackFrom(feedbacks []domain.Feedback, learnerID uint) bool {
	for _, f := range feedbacks {
		if f.LearnerID == learnerID {
			return true
		}
	}
	return false
}
