package usecase

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"onlearn-learner/internal/domain"
	"onlearn-learner/pkg/logging"
)

const (
	recentEnrollmentsLimit = 3
	recentActivitiesLimit  = 10
)

type dashboardUsecase struct {
	lms          domain.LMSClient
	activityRepo domain.ActivityRepository // optional
	logger       *zap.Logger
}

func NewDashboardUsecase(lms domain.LMSClient, ar domain.ActivityRepository, logger *zap.Logger) domain.DashboardUsecase {
	return &dashboardUsecase{
		lms:          lms,
		activityRepo: ar,
		logger:       logger,
	}
}

func (uc *dashboardUsecase) GetLearnerDashboard(ctx context.Context, cred domain.Credential) (*domain.LearnerDashboardData, error) {
	log := logging.FromContext(ctx, uc.logger).With(zap.Uint("learner.id", cred.LearnerID))

	// Get enrollments
	enrollments, err := uc.lms.GetMyEnrollments(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("fetch enrollments: %w", err)
	}

	// Trainer info comes from the course catalogue
	courses, err := uc.lms.GetAllCourses(ctx, cred)
	if err != nil {
		log.Warn("course catalogue unavailable, trainers left blank", zap.Error(err))
	}
	trainers := make(map[uint]domain.Trainer, len(courses))
	for _, c := range courses {
		if c.Trainer != nil {
			trainers[c.ID] = *c.Trainer
		}
	}

	completedCount := 0
	enriched := make([]domain.EnrollmentWithCourse, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Status == domain.EnrollmentStatusCompleted {
			completedCount++
		}
		trainer, ok := trainers[e.Course()]
		if !ok {
			trainer = domain.Trainer{Username: "N/A"}
		}
		enriched = append(enriched, domain.EnrollmentWithCourse{Enrollment: e, Trainer: trainer})
	}

	recent := append([]domain.EnrollmentWithCourse(nil), enriched...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].EnrolledAt.After(recent[j].EnrolledAt)
	})
	if len(recent) > recentEnrollmentsLimit {
		recent = recent[:recentEnrollmentsLimit]
	}

	notifications, err := uc.lms.CountNotifications(ctx, cred)
	if err != nil {
		log.Debug("notifications unavailable", zap.Error(err))
	}

	activities := []domain.Activity{}
	if uc.activityRepo != nil {
		if recentActs, err := uc.activityRepo.GetRecentByLearner(ctx, cred.LearnerID, recentActivitiesLimit); err != nil {
			log.Warn("failed to read activity journal", zap.Error(err))
		} else {
			activities = recentActs
		}
	}

	return &domain.LearnerDashboardData{
		LearnerID:         cred.LearnerID,
		TotalEnrollments:  len(enriched),
		CompletedCourses:  completedCount,
		InProgressCourses: len(enriched) - completedCount,
		Notifications:     notifications,
		Enrollments:       enriched,
		RecentEnrollments: recent,
		RecentActivities:  activities,
	}, nil
}
