package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"onlearn-learner/internal/domain"
)

// Database holds the optional stores. A nil field means the store is not configured.
type Database struct {
	PG    *gorm.DB
	Mongo *mongo.Database
}

func ConnectDB(ctx context.Context, cfg *AppConfig, logger *zap.Logger) (*Database, error) {
	db := &Database{}

	// 1. PostgreSQL snapshot store
	if dsn := cfg.PostgresDSN(); dsn != "" {
		pgDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		db.PG = pgDB
		logger.Info("connected to PostgreSQL", zap.String("db.host", cfg.DB.Host), zap.String("db.name", cfg.DB.Name))
	} else {
		logger.Info("no snapshot database configured, prior views are kept in memory only")
	}

	// 2. MongoDB activity journal
	if cfg.Mongo.URI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}
		db.Mongo = client.Database(cfg.Mongo.DBName)
		logger.Info("connected to MongoDB", zap.String("mongo.db", cfg.Mongo.DBName))
	} else {
		logger.Info("no activity journal configured")
	}

	return db, nil
}

// AutoMigrate creates the snapshot table. It is a no-op without PostgreSQL.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(&domain.ViewSnapshot{})
}

// Close releases both connections.
func (d *Database) Close(ctx context.Context) error {
	if d.Mongo != nil {
		if err := d.Mongo.Client().Disconnect(ctx); err != nil {
			return err
		}
	}
	if d.PG != nil {
		sqlDB, err := d.PG.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
