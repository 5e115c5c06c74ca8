package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"onlearn-learner/internal/domain"
)

// ========== VIEW SNAPSHOT REPOSITORY ==========

type snapshotRepo struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) domain.SnapshotRepository {
	return &snapshotRepo{db}
}

// Save upserts the snapshot of one learner's view of one course.
func (r *snapshotRepo) Save(ctx context.Context, learnerID, courseID uint, view *domain.CourseView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode view snapshot: %w", err)
	}
	snap := domain.ViewSnapshot{
		LearnerID: learnerID,
		CourseID:  courseID,
		Payload:   payload,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}, {Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&snap).Error
}

func (r *snapshotRepo) Get(ctx context.Context, learnerID, courseID uint) (*domain.CourseView, error) {
	var snap domain.ViewSnapshot
	err := r.db.WithContext(ctx).
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(snap.Payload, &snap.View); err != nil {
		return nil, fmt.Errorf("decode view snapshot: %w", err)
	}
	return &snap.View, nil
}

func (r *snapshotRepo) Delete(ctx context.Context, learnerID, courseID uint) error {
	return r.db.WithContext(ctx).
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		Delete(&domain.ViewSnapshot{}).Error
}
