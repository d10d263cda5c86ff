// server/internal/store/mongostore/mongostore.go
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharma-redistribution-api-server/internal/apperror"
	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	CollectionLots       = "inventory_lots"
	CollectionRequests   = "redistribution_requests"
	CollectionLogs       = "redistribution_logs"
	CollectionFacilities = "facilities"
	CollectionUsers      = "users"
	CollectionOutbox     = "outbox"
)

// Store runs every unit inside a multi-document transaction. It needs a
// replica set or sharded cluster.
type Store struct {
	db     *mongo.Database
	txOpts *options.TransactionOptions
}

func New(db *mongo.Database) *Store {
	return &Store{
		db: db,
		txOpts: options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority()),
	}
}

// EnsureIndexes creates the unique keys the transactional code relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		CollectionLots: {
			{
				Keys:    bson.D{{Key: "facilityID", Value: 1}, {Key: "drugName", Value: 1}, {Key: "batchNumber", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_facility_drug_batch"),
			},
		},
		CollectionRequests: {
			{Keys: bson.D{{Key: "requestID", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "fromFacilityID", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "toFacilityID", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		CollectionLogs: {
			{Keys: bson.D{{Key: "requestID", Value: 1}}},
		},
		CollectionOutbox: {
			{Keys: bson.D{{Key: "delivered", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start mongo session: %w", err)
	}
	defer session.EndSession(context.Background())

	callback := func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx, mongoTx{db: s.db})
	}
	_, err = session.WithTransaction(ctx, callback, s.txOpts)
	return translateTxError(err)
}

func (s *Store) Users() store.UserDirectory {
	return userDirectory{coll: s.db.Collection(CollectionUsers)}
}

func (s *Store) Outbox() store.OutboxReader {
	return outboxReader{coll: s.db.Collection(CollectionOutbox)}
}

// translateTxError maps driver failures that a re-run can fix to apperror.KindTransaction.
func translateTxError(err error) error {
	if err == nil || apperror.KindOf(err) != "" {
		return err
	}
	if isRetryable(err) {
		return apperror.Transaction("mongo transaction aborted", err)
	}
	return fmt.Errorf("mongo transaction: %w", err)
}

func isRetryable(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorLabel("TransientTransactionError") || se.HasErrorLabel("UnknownTransactionCommitResult") {
			return true
		}
	}
	return mongo.IsDuplicateKeyError(err) ||
		mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded)
}

type mongoTx struct {
	db *mongo.Database
}

func (t mongoTx) Lots() store.LotRepository {
	return lotRepo{coll: t.db.Collection(CollectionLots)}
}

func (t mongoTx) Requests() store.RequestRepository {
	return requestRepo{coll: t.db.Collection(CollectionRequests)}
}

func (t mongoTx) Logs() store.LogRepository {
	return logRepo{coll: t.db.Collection(CollectionLogs)}
}

func (t mongoTx) Facilities() store.FacilityDirectory {
	return facilityDirectory{coll: t.db.Collection(CollectionFacilities)}
}

func (t mongoTx) Outbox() store.OutboxWriter {
	return outboxWriter{coll: t.db.Collection(CollectionOutbox)}
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, resource, id string) (*T, error) {
	var out T
	err := coll.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound(resource, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", resource, id, err)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", coll.Name(), err)
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func insertError(what string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperror.Transaction(what+" already exists", err)
	}
	return fmt.Errorf("insert %s: %w", what, err)
}

type lotRepo struct{ coll *mongo.Collection }

func (r lotRepo) FindByID(ctx context.Context, id string) (*models.InventoryLot, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.NotFound("lot", id)
	}
	return findOne[models.InventoryLot](ctx, r.coll, bson.M{"_id": oid}, "lot", id)
}

func (r lotRepo) FindByKey(ctx context.Context, key models.LotKey) (*models.InventoryLot, error) {
	filter := bson.M{"facilityID": key.FacilityID, "drugName": key.DrugName, "batchNumber": key.BatchNumber}
	return findOne[models.InventoryLot](ctx, r.coll, filter, "lot", key.DrugName+"/"+key.BatchNumber)
}

func (r lotRepo) ListByFacility(ctx context.Context, facilityID string) ([]models.InventoryLot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "drugName", Value: 1}, {Key: "batchNumber", Value: 1}})
	return findAll[models.InventoryLot](ctx, r.coll, bson.M{"facilityID": facilityID}, opts)
}

func (r lotRepo) Insert(ctx context.Context, lot *models.InventoryLot) error {
	lot.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, lot); err != nil {
		lot.ID = primitive.NilObjectID
		return insertError("lot", err)
	}
	return nil
}

func (r lotRepo) UpdateStock(ctx context.Context, lot *models.InventoryLot, expectedStock int) error {
	filter := bson.M{"_id": lot.ID, "currentStock": expectedStock}
	update := bson.M{"$set": bson.M{"currentStock": lot.CurrentStock, "status": lot.Status}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update lot %s: %w", lot.ID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return apperror.Transaction("lot "+lot.ID.Hex()+" modified concurrently", nil)
	}
	return nil
}

type requestRepo struct{ coll *mongo.Collection }

func (r requestRepo) FindByRequestID(ctx context.Context, requestID string) (*models.RedistributionRequest, error) {
	return findOne[models.RedistributionRequest](ctx, r.coll, bson.M{"requestID": requestID}, "redistribution request", requestID)
}

func (r requestRepo) ListByFacility(ctx context.Context, facilityID string) ([]models.RedistributionRequest, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"fromFacilityID": facilityID},
		bson.M{"toFacilityID": facilityID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findAll[models.RedistributionRequest](ctx, r.coll, filter, opts)
}

func (r requestRepo) Insert(ctx context.Context, req *models.RedistributionRequest) error {
	req.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, req); err != nil {
		req.ID = primitive.NilObjectID
		return insertError("redistribution request", err)
	}
	return nil
}

// Resolve only matches a pending document, so two resolvers cannot both win.
func (r requestRepo) Resolve(ctx context.Context, req *models.RedistributionRequest) error {
	set, err := resolutionFields(req)
	if err != nil {
		return err
	}
	filter := bson.M{"requestID": req.RequestID, "status": models.RedistributionPending}
	result, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("resolve request %s: %w", req.RequestID, err)
	}
	if result.MatchedCount > 0 {
		return nil
	}
	current, err := r.FindByRequestID(ctx, req.RequestID)
	if err != nil {
		return err
	}
	return apperror.InvalidState("redistribution request %s is already %s", req.RequestID, current.Status)
}

// resolutionFields holds only the stamps belonging to the target status.
func resolutionFields(req *models.RedistributionRequest) (bson.M, error) {
	switch req.Status {
	case models.RedistributionCompleted:
		return bson.M{"status": req.Status, "receivedBy": req.ReceivedBy, "receivedAt": req.ReceivedAt}, nil
	case models.RedistributionDeclined:
		return bson.M{"status": req.Status, "declinedBy": req.DeclinedBy, "declinedAt": req.DeclinedAt}, nil
	default:
		return nil, apperror.InvalidState("cannot resolve request %s to %q", req.RequestID, req.Status)
	}
}

type logRepo struct{ coll *mongo.Collection }

func (r logRepo) Insert(ctx context.Context, entry *models.RedistributionLog) error {
	entry.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		entry.ID = primitive.NilObjectID
		return insertError("redistribution log", err)
	}
	return nil
}

func (r logRepo) ListByFacility(ctx context.Context, facilityID string) ([]models.RedistributionLog, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"fromFacilityID": facilityID},
		bson.M{"toFacilityID": facilityID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "resolvedAt", Value: -1}})
	return findAll[models.RedistributionLog](ctx, r.coll, filter, opts)
}

type facilityDirectory struct{ coll *mongo.Collection }

func (d facilityDirectory) FindByID(ctx context.Context, facilityID string) (*models.Facility, error) {
	return findOne[models.Facility](ctx, d.coll, bson.M{"facilityID": facilityID}, "facility", facilityID)
}

func (d facilityDirectory) List(ctx context.Context) ([]models.Facility, error) {
	opts := options.Find().SetSort(bson.D{{Key: "facilityID", Value: 1}})
	return findAll[models.Facility](ctx, d.coll, bson.M{}, opts)
}

type userDirectory struct{ coll *mongo.Collection }

func (d userDirectory) FindByID(ctx context.Context, userID string) (*models.User, error) {
	return findOne[models.User](ctx, d.coll, bson.M{"userID": userID}, "user", userID)
}

type outboxWriter struct{ coll *mongo.Collection }

func (w outboxWriter) Append(ctx context.Context, events ...models.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}
	docs := make([]interface{}, len(events))
	for i, ev := range events {
		docs[i] = ev
	}
	if _, err := w.coll.InsertMany(ctx, docs); err != nil {
		return insertError("outbox event", err)
	}
	return nil
}

type outboxReader struct{ coll *mongo.Collection }

func (r outboxReader) Pending(ctx context.Context, olderThan time.Time, limit int) ([]models.OutboxEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	filter := bson.M{"delivered": false, "createdAt": bson.M{"$lt": olderThan}}
	return findAll[models.OutboxEvent](ctx, r.coll, filter, opts)
}

func (r outboxReader) Claim(ctx context.Context, id string) (bool, error) {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "delivered": false},
		bson.M{"$set": bson.M{"delivered": true, "deliveredAt": time.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("claim outbox event %s: %w", id, err)
	}
	return result.ModifiedCount == 1, nil
}

var _ store.Store = (*Store)(nil)
