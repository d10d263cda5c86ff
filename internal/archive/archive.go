// Package archive exports a facility's redistribution logs to object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"pharma-redistribution-api-server/internal/models"

	"go.uber.org/zap"
)

// Uploader is satisfied by *s3.Uploader.
type Uploader interface {
	Upload(ctx context.Context, objectKey, contentType string, body io.Reader) (string, error)
}

// LogSource is satisfied by *redistribution.Service.
type LogSource interface {
	Logs(ctx context.Context, facilityID string) ([]models.RedistributionLog, error)
}

type Result struct {
	FacilityID string    `json:"facilityID"`
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	Entries    int       `json:"entries"`
	ExportedAt time.Time `json:"exportedAt"`
}

type document struct {
	FacilityID string                     `json:"facilityID"`
	ExportedAt time.Time                  `json:"exportedAt"`
	Entries    []models.RedistributionLog `json:"entries"`
}

type Exporter struct {
	uploader Uploader
	logs     LogSource
	prefix   string
	logger   *zap.Logger
	now      func() time.Time
}

func NewExporter(uploader Uploader, logs LogSource, prefix string, logger *zap.Logger) *Exporter {
	return &Exporter{uploader: uploader, logs: logs, prefix: prefix, logger: logger.Named("archive"), now: time.Now}
}

// Export writes every log entry touching facilityID as one JSON object.
func (e *Exporter) Export(ctx context.Context, facilityID string) (*Result, error) {
	entries, err := e.logs.Logs(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("load redistribution logs: %w", err)
	}

	now := e.now().UTC()
	body, err := json.Marshal(document{FacilityID: facilityID, ExportedAt: now, Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("encode redistribution logs: %w", err)
	}

	key := path.Join(e.prefix, facilityID, now.Format("20060102T150405Z")+".json")
	url, err := e.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	e.logger.Info("redistribution logs exported",
		zap.String("facility_id", facilityID),
		zap.String("key", key),
		zap.Int("entries", len(entries)),
	)
	return &Result{FacilityID: facilityID, Key: key, URL: url, Entries: len(entries), ExportedAt: now}, nil
}
