package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"onlearn-learner/internal/domain"
)

const activityCollection = "learner_activities"

type activityRepo struct {
	db *mongo.Database
}

func NewActivityRepository(db *mongo.Database) domain.ActivityRepository {
	return &activityRepo{db}
}

func (r *activityRepo) Record(ctx context.Context, activity *domain.Activity) error {
	if activity.ID == "" {
		activity.ID = primitive.NewObjectID().Hex()
	}
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now().UTC()
	}
	_, err := r.db.Collection(activityCollection).InsertOne(ctx, activity)
	return err
}

// GetRecentByLearner returns the newest activities first.
func (r *activityRepo) GetRecentByLearner(ctx context.Context, learnerID uint, limit int) ([]domain.Activity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.db.Collection(activityCollection).Find(ctx, bson.M{"learner_id": learnerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	activities := []domain.Activity{}
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}
