package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"pharma-redistribution-api-server/internal/models"
)

// Submitter is satisfied by *blockchain.Ledger and *gateway.Contract.
type Submitter interface {
	SubmitTransaction(name string, args ...string) ([]byte, error)
}

// LedgerRecorder anchors audit entries on a Fabric channel so the trail cannot be
// rewritten by anyone with database access.
type LedgerRecorder struct {
	contract Submitter
	function string
}

func NewLedgerRecorder(contract Submitter) *LedgerRecorder {
	return &LedgerRecorder{contract: contract, function: "RecordAudit"}
}

func (r *LedgerRecorder) Record(ctx context.Context, entry models.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	details, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	_, err = r.contract.SubmitTransaction(
		r.function,
		entry.TargetID,
		entry.Action,
		entry.Actor,
		string(details),
	)
	if err != nil {
		return fmt.Errorf("submit %s for %s: %w", r.function, entry.TargetID, err)
	}
	return nil
}

var _ Recorder = (*LedgerRecorder)(nil)
