package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"pharma-redistribution-api-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memUploader struct {
	objects map[string][]byte
}

func (u *memUploader) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	u.objects[key] = b
	return "https://bucket/" + key, nil
}

type staticLogs struct {
	entries []models.RedistributionLog
	err     error
}

func (s staticLogs) Logs(context.Context, string) ([]models.RedistributionLog, error) {
	return s.entries, s.err
}

func TestExporter_Export(t *testing.T) {
	up := &memUploader{objects: map[string][]byte{}}
	logs := staticLogs{entries: []models.RedistributionLog{
		{RequestID: "RDR-1", Quantity: 30, FromFacilityID: "fac-a", ToFacilityID: "fac-b", Status: models.RedistributionCompleted},
	}}
	e := NewExporter(up, logs, "redistribution-logs", zap.NewNop())
	e.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	res, err := e.Export(context.Background(), "fac-a")
	require.NoError(t, err)

	assert.Equal(t, "redistribution-logs/fac-a/20260301T093000Z.json", res.Key)
	assert.Equal(t, "https://bucket/"+res.Key, res.URL)
	assert.Equal(t, 1, res.Entries)

	var doc document
	require.NoError(t, json.Unmarshal(up.objects[res.Key], &doc))
	assert.Equal(t, "fac-a", doc.FacilityID)
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, "RDR-1", doc.Entries[0].RequestID)
}

func TestExporter_SourceError(t *testing.T) {
	cause := errors.New("db down")
	e := NewExporter(&memUploader{objects: map[string][]byte{}}, staticLogs{err: cause}, "", zap.NewNop())

	_, err := e.Export(context.Background(), "fac-a")

	assert.ErrorIs(t, err, cause)
}
