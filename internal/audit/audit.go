// Package audit records who did what. Recording is best-effort: callers log
// failures and never let them affect the operation being audited.
package audit

import (
	"context"
	"errors"
	"fmt"

	"pharma-redistribution-api-server/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	ModuleRedistribution = "redistribution"
	ModuleInventory      = "inventory"
)

type Recorder interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

// MongoRecorder appends entries to the audit_logs collection.
type MongoRecorder struct {
	coll *mongo.Collection
}

func NewMongoRecorder(db *mongo.Database) *MongoRecorder {
	return &MongoRecorder{coll: db.Collection("audit_logs")}
}

func (r *MongoRecorder) Record(ctx context.Context, entry models.AuditEntry) error {
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// LogRecorder writes entries to the application log. Used when no database is configured.
type LogRecorder struct {
	logger *zap.Logger
}

func NewLogRecorder(logger *zap.Logger) *LogRecorder {
	return &LogRecorder{logger: logger.Named("audit")}
}

func (r *LogRecorder) Record(_ context.Context, entry models.AuditEntry) error {
	r.logger.Info(entry.Message,
		zap.String("actor", entry.Actor),
		zap.String("action", entry.Action),
		zap.String("module", entry.Module),
		zap.String("target_id", entry.TargetID),
	)
	return nil
}

// Multi records to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, entry models.AuditEntry) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Recorder = (*MongoRecorder)(nil)
	_ Recorder = (*LogRecorder)(nil)
	_ Recorder = Multi(nil)
)
