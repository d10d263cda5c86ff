// Package memstore is an in-memory implementation of store.Store.
//
// Transactions run one at a time against a cloned copy of the state which
// replaces the committed state only when the callback succeeds, so a failed
// unit leaves no trace. It backs the service tests and local development.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"pharma-redistribution-api-server/internal/apperror"
	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Write operations reported to the fault hook.
const (
	OpLotInsert      = "lots.insert"
	OpLotUpdate      = "lots.update"
	OpRequestInsert  = "requests.insert"
	OpRequestResolve = "requests.resolve"
	OpLogInsert      = "logs.insert"
	OpOutboxAppend   = "outbox.append"
	OpCommit         = "commit"
)

// FaultFunc is consulted before every write; a non-nil error aborts the transaction.
type FaultFunc func(op string) error

type state struct {
	lots       map[primitive.ObjectID]models.InventoryLot
	lotKeys    map[models.LotKey]primitive.ObjectID
	requests   map[string]models.RedistributionRequest
	logs       []models.RedistributionLog
	facilities map[string]models.Facility
	outbox     []models.OutboxEvent
}

func newState() state {
	return state{
		lots:       map[primitive.ObjectID]models.InventoryLot{},
		lotKeys:    map[models.LotKey]primitive.ObjectID{},
		requests:   map[string]models.RedistributionRequest{},
		facilities: map[string]models.Facility{},
	}
}

func (s state) clone() state {
	c := state{
		lots:       make(map[primitive.ObjectID]models.InventoryLot, len(s.lots)),
		lotKeys:    make(map[models.LotKey]primitive.ObjectID, len(s.lotKeys)),
		requests:   make(map[string]models.RedistributionRequest, len(s.requests)),
		logs:       append([]models.RedistributionLog(nil), s.logs...),
		facilities: make(map[string]models.Facility, len(s.facilities)),
		outbox:     append([]models.OutboxEvent(nil), s.outbox...),
	}
	for k, v := range s.lots {
		c.lots[k] = v
	}
	for k, v := range s.lotKeys {
		c.lotKeys[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.facilities {
		c.facilities[k] = v
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	txMu      sync.Mutex // serialises transactions
	mu        sync.RWMutex
	state     state
	users     map[string]models.User
	delivered map[string]bool // outbox delivery lives outside transactional state
	fault     FaultFunc
}

func New() *Store {
	return &Store{
		state:     newState(),
		users:     map[string]models.User{},
		delivered: map[string]bool{},
	}
}

// SetFault installs (or clears, with nil) the fault hook.
func (s *Store) SetFault(fn FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

func (s *Store) checkFault(op string) error {
	s.mu.RLock()
	fn := s.fault
	s.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(op)
}

func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return apperror.Transaction("transaction not started", err)
	}

	s.mu.RLock()
	work := s.state.clone()
	s.mu.RUnlock()

	tx := &memTx{store: s, st: &work}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperror.Transaction("transaction aborted before commit", err)
	}
	if err := s.checkFault(OpCommit); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = work
	s.mu.Unlock()
	return nil
}

func (s *Store) Users() store.UserDirectory {
	return userDirectory{s}
}

func (s *Store) Outbox() store.OutboxReader {
	return outboxReader{s}
}

// Seeding helpers, applied outside any transaction.

func (s *Store) PutFacility(f models.Facility) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	s.state.facilities[f.FacilityID] = f
}

func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.users[u.UserID] = u
}

// PutLot stores lot as-is (status included) and returns it with its ID set.
func (s *Store) PutLot(lot models.InventoryLot) models.InventoryLot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lot.ID.IsZero() {
		lot.ID = primitive.NewObjectID()
	}
	s.state.lots[lot.ID] = lot
	s.state.lotKeys[lot.Key()] = lot.ID
	return lot
}

// Read helpers for assertions.

func (s *Store) Lot(key models.LotKey) (models.InventoryLot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.state.lotKeys[key]
	if !ok {
		return models.InventoryLot{}, false
	}
	return s.state.lots[id], true
}

func (s *Store) Lots() []models.InventoryLot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.InventoryLot, 0, len(s.state.lots))
	for _, l := range s.state.lots {
		out = append(out, l)
	}
	return out
}

func (s *Store) Request(requestID string) (models.RedistributionRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.requests[requestID]
	return r, ok
}

func (s *Store) RequestCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.requests)
}

func (s *Store) RedistributionLogs() []models.RedistributionLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.RedistributionLog(nil), s.state.logs...)
}

func (s *Store) OutboxEvents() []models.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.OutboxEvent(nil), s.state.outbox...)
	for i := range out {
		out[i].Delivered = s.delivered[out[i].ID]
	}
	return out
}

type memTx struct {
	store *Store
	st    *state
}

func (t *memTx) Lots() store.LotRepository { return lotRepo{t} }
func (t *memTx) Requests() store.RequestRepository { return requestRepo{t} }
func (t *memTx) Logs() store.LogRepository { return logRepo{t} }
func (t *memTx) Facilities() store.FacilityDirectory { return facilityDirectory{t} }
func (t *memTx) Outbox() store.OutboxWriter { return outboxWriter{t} }

type lotRepo struct{ tx *memTx }

func (r lotRepo) FindByID(_ context.Context, id string) (*models.InventoryLot, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.NotFound("lot", id)
	}
	lot, ok := r.tx.st.lots[oid]
	if !ok {
		return nil, apperror.NotFound("lot", id)
	}
	return &lot, nil
}

func (r lotRepo) FindByKey(_ context.Context, key models.LotKey) (*models.InventoryLot, error) {
	id, ok := r.tx.st.lotKeys[key]
	if !ok {
		return nil, apperror.NotFound("lot", key.DrugName+"/"+key.BatchNumber)
	}
	lot := r.tx.st.lots[id]
	return &lot, nil
}

func (r lotRepo) ListByFacility(_ context.Context, facilityID string) ([]models.InventoryLot, error) {
	out := []models.InventoryLot{}
	for _, l := range r.tx.st.lots {
		if l.FacilityID == facilityID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DrugName != out[j].DrugName {
			return out[i].DrugName < out[j].DrugName
		}
		return out[i].BatchNumber < out[j].BatchNumber
	})
	return out, nil
}

func (r lotRepo) Insert(_ context.Context, lot *models.InventoryLot) error {
	if err := r.tx.store.checkFault(OpLotInsert); err != nil {
		return err
	}
	if _, exists := r.tx.st.lotKeys[lot.Key()]; exists {
		return apperror.Transaction("lot already exists", nil)
	}
	lot.ID = primitive.NewObjectID()
	r.tx.st.lots[lot.ID] = *lot
	r.tx.st.lotKeys[lot.Key()] = lot.ID
	return nil
}

func (r lotRepo) UpdateStock(_ context.Context, lot *models.InventoryLot, expectedStock int) error {
	if err := r.tx.store.checkFault(OpLotUpdate); err != nil {
		return err
	}
	stored, ok := r.tx.st.lots[lot.ID]
	if !ok {
		return apperror.NotFound("lot", lot.ID.Hex())
	}
	if stored.CurrentStock != expectedStock {
		return apperror.Transaction("lot modified concurrently", nil)
	}
	stored.CurrentStock = lot.CurrentStock
	stored.Status = lot.Status
	r.tx.st.lots[lot.ID] = stored
	return nil
}

type requestRepo struct{ tx *memTx }

func (r requestRepo) FindByRequestID(_ context.Context, requestID string) (*models.RedistributionRequest, error) {
	req, ok := r.tx.st.requests[requestID]
	if !ok {
		return nil, apperror.NotFound("redistribution request", requestID)
	}
	return &req, nil
}

func (r requestRepo) ListByFacility(_ context.Context, facilityID string) ([]models.RedistributionRequest, error) {
	out := []models.RedistributionRequest{}
	for _, req := range r.tx.st.requests {
		if req.FromFacilityID == facilityID || req.ToFacilityID == facilityID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r requestRepo) Insert(_ context.Context, req *models.RedistributionRequest) error {
	if err := r.tx.store.checkFault(OpRequestInsert); err != nil {
		return err
	}
	if _, exists := r.tx.st.requests[req.RequestID]; exists {
		return apperror.Transaction("request id collision", nil)
	}
	req.ID = primitive.NewObjectID()
	r.tx.st.requests[req.RequestID] = *req
	return nil
}

func (r requestRepo) Resolve(_ context.Context, req *models.RedistributionRequest) error {
	if err := r.tx.store.checkFault(OpRequestResolve); err != nil {
		return err
	}
	stored, ok := r.tx.st.requests[req.RequestID]
	if !ok {
		return apperror.NotFound("redistribution request", req.RequestID)
	}
	if !stored.IsPending() {
		return apperror.InvalidState("redistribution request %s is already %s", req.RequestID, stored.Status)
	}
	r.tx.st.requests[req.RequestID] = *req
	return nil
}

type logRepo struct{ tx *memTx }

func (r logRepo) Insert(_ context.Context, entry *models.RedistributionLog) error {
	if err := r.tx.store.checkFault(OpLogInsert); err != nil {
		return err
	}
	entry.ID = primitive.NewObjectID()
	r.tx.st.logs = append(r.tx.st.logs, *entry)
	return nil
}

func (r logRepo) ListByFacility(_ context.Context, facilityID string) ([]models.RedistributionLog, error) {
	out := []models.RedistributionLog{}
	for _, l := range r.tx.st.logs {
		if l.FromFacilityID == facilityID || l.ToFacilityID == facilityID {
			out = append(out, l)
		}
	}
	return out, nil
}

type facilityDirectory struct{ tx *memTx }

func (d facilityDirectory) FindByID(_ context.Context, facilityID string) (*models.Facility, error) {
	f, ok := d.tx.st.facilities[facilityID]
	if !ok {
		return nil, apperror.NotFound("facility", facilityID)
	}
	return &f, nil
}

func (d facilityDirectory) List(_ context.Context) ([]models.Facility, error) {
	out := make([]models.Facility, 0, len(d.tx.st.facilities))
	for _, f := range d.tx.st.facilities {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FacilityID < out[j].FacilityID })
	return out, nil
}

type outboxWriter struct{ tx *memTx }

func (w outboxWriter) Append(_ context.Context, events ...models.OutboxEvent) error {
	if err := w.tx.store.checkFault(OpOutboxAppend); err != nil {
		return err
	}
	w.tx.st.outbox = append(w.tx.st.outbox, events...)
	return nil
}

type userDirectory struct{ s *Store }

func (d userDirectory) FindByID(_ context.Context, userID string) (*models.User, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	u, ok := d.s.users[userID]
	if !ok {
		return nil, apperror.NotFound("user", userID)
	}
	return &u, nil
}

type outboxReader struct{ s *Store }

func (r outboxReader) Pending(_ context.Context, olderThan time.Time, limit int) ([]models.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.OutboxEvent{}
	for _, e := range r.s.state.outbox {
		if r.s.delivered[e.ID] || !e.CreatedAt.Before(olderThan) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r outboxReader) Claim(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.delivered[id] {
		return false, nil
	}
	for _, e := range r.s.state.outbox {
		if e.ID == id {
			r.s.delivered[id] = true
			return true, nil
		}
	}
	return false, nil
}

var _ store.Store = (*Store)(nil)
