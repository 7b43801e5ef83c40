package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/5G-Cash/bulwark-explorer/carvererr"
)

const (
	collBlocks     = "blocks"
	collMovements  = "carver_movements"
	collAddresses  = "carver_addresses"
	connectTimeout = 10 * time.Second
)

// mongoStore is the store.Store implementation this repository ships
// with, grounded on go.mongodb.org/mongo-driver (the document-store
// client already present a transitively in this retrieval pack).
type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database

	blocks    *mongoBlockStore
	movements *mongoMovementStore
	addresses *mongoAddressStore
}

// Connect dials uri and selects database, returning a ready-to-use
// Store. It does not call EnsureIndexes; callers decide when to pay
// that cost.
func Connect(ctx context.Context, uri, database string) (Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, carvererr.Store(err, "connecting to document store")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, carvererr.Store(err, "pinging document store")
	}

	db := client.Database(database)
	s := &mongoStore{
		client:    client,
		db:        db,
		blocks:    &mongoBlockStore{coll: db.Collection(collBlocks)},
		movements: &mongoMovementStore{coll: db.Collection(collMovements)},
		addresses: &mongoAddressStore{coll: db.Collection(collAddresses)},
	}
	return s, nil
}

func (s *mongoStore) Blocks() BlockStore       { return s.blocks }
func (s *mongoStore) Movements() MovementStore { return s.movements }
func (s *mongoStore) Addresses() AddressStore  { return s.addresses }

func (s *mongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return carvererr.Store(err, "disconnecting from document store")
	}
	return nil
}

// EnsureIndexes creates every index spec.md §6 names, idempotently.
func (s *mongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.blocks.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "height", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "is_confirmed", Value: 1}}},
	}); err != nil {
		return carvererr.Store(err, "creating block indexes")
	}

	if _, err := s.movements.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sequence", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "block_height", Value: 1}}},
		{Keys: bson.D{{Key: "from", Value: 1}}},
		{Keys: bson.D{{Key: "to", Value: 1}}},
		{Keys: bson.D{{Key: "context_tx", Value: 1}}},
		{Keys: bson.D{{Key: "context_address", Value: 1}}},
	}); err != nil {
		return carvererr.Store(err, "creating movement indexes")
	}

	if _, err := s.addresses.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sequence", Value: 1}}},
		{Keys: bson.D{{Key: "block_height", Value: 1}}},
	}); err != nil {
		return carvererr.Store(err, "creating address indexes")
	}
	return nil
}

type mongoBlockStore struct{ coll *mongo.Collection }

func (b *mongoBlockStore) Insert(ctx context.Context, block *Block) error {
	_, err := b.coll.InsertOne(ctx, block)
	if err != nil {
		return carvererr.Store(err, "inserting block at height %d", block.Height)
	}
	return nil
}

func (b *mongoBlockStore) Last(ctx context.Context) (*Block, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "height", Value: -1}}).SetHint(bson.D{{Key: "height", Value: 1}})
	var block Block
	err := b.coll.FindOne(ctx, bson.M{}, opts).Decode(&block)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, carvererr.Store(err, "fetching last block")
	}
	return &block, nil
}

func (b *mongoBlockStore) ByHeight(ctx context.Context, height int64) (*Block, error) {
	var block Block
	err := b.coll.FindOne(ctx, bson.M{"height": height}).Decode(&block)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, carvererr.Store(err, "fetching block at height %d", height)
	}
	return &block, nil
}

func (b *mongoBlockStore) FirstUnconfirmed(ctx context.Context) (*Block, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "height", Value: 1}}).SetHint(bson.D{{Key: "is_confirmed", Value: 1}})
	var block Block
	err := b.coll.FindOne(ctx, bson.M{"is_confirmed": false}, opts).Decode(&block)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, carvererr.Store(err, "fetching first unconfirmed block")
	}
	return &block, nil
}

func (b *mongoBlockStore) MarkConfirmed(ctx context.Context, height int64) error {
	_, err := b.coll.UpdateOne(ctx, bson.M{"height": height}, bson.M{"$set": bson.M{"is_confirmed": true}})
	if err != nil {
		return carvererr.Store(err, "marking block %d confirmed", height)
	}
	return nil
}

func (b *mongoBlockStore) DeleteFromHeight(ctx context.Context, height int64) error {
	_, err := b.coll.DeleteMany(ctx, bson.M{"height": bson.M{"$gte": height}})
	if err != nil {
		return carvererr.Store(err, "deleting blocks from height %d", height)
	}
	return nil
}

type mongoMovementStore struct{ coll *mongo.Collection }

func (m *mongoMovementStore) InsertMany(ctx context.Context, movements []*Movement) error {
	if len(movements) == 0 {
		return nil
	}
	docs := make([]interface{}, len(movements))
	for i, mv := range movements {
		docs[i] = mv
	}
	_, err := m.coll.InsertMany(ctx, docs)
	if err != nil {
		return carvererr.Store(err, "inserting %d movements", len(movements))
	}
	return nil
}

func (m *mongoMovementStore) FindDescendingBatch(ctx context.Context, height int64, limit int) ([]*Movement, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "sequence", Value: -1}}).
		SetLimit(int64(limit)).
		SetHint(bson.D{{Key: "block_height", Value: 1}})
	cursor, err := m.coll.Find(ctx, bson.M{"block_height": bson.M{"$gte": height}}, opts)
	if err != nil {
		return nil, carvererr.Store(err, "fetching descending movement batch from height %d", height)
	}
	defer cursor.Close(ctx)

	var out []*Movement
	if err := cursor.All(ctx, &out); err != nil {
		return nil, carvererr.Store(err, "decoding descending movement batch")
	}
	return out, nil
}

func (m *mongoMovementStore) DeleteFromSequence(ctx context.Context, sequence int64) error {
	_, err := m.coll.DeleteMany(ctx, bson.M{"sequence": bson.M{"$gte": sequence}})
	if err != nil {
		return carvererr.Store(err, "deleting movements from sequence %d", sequence)
	}
	return nil
}

func (m *mongoMovementStore) MaxSequence(ctx context.Context) (int64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "sequence", Value: -1}}).SetHint(bson.D{{Key: "sequence", Value: 1}})
	var mv Movement
	err := m.coll.FindOne(ctx, bson.M{}, opts).Decode(&mv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, carvererr.Store(err, "fetching max movement sequence")
	}
	return mv.Sequence, nil
}

type mongoAddressStore struct{ coll *mongo.Collection }

func (a *mongoAddressStore) ByLabel(ctx context.Context, label string) (*Address, error) {
	var addr Address
	err := a.coll.FindOne(ctx, bson.M{"_id": label}).Decode(&addr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, carvererr.Store(err, "fetching address %q", label)
	}
	return &addr, nil
}

func (a *mongoAddressStore) Upsert(ctx context.Context, addr *Address) error {
	_, err := a.coll.ReplaceOne(ctx, bson.M{"_id": addr.Label}, addr, options.Replace().SetUpsert(true))
	if err != nil {
		return carvererr.Store(err, "upserting address %q", addr.Label)
	}
	return nil
}

func (a *mongoAddressStore) UpsertMany(ctx context.Context, addrs []*Address) error {
	if len(addrs) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, len(addrs))
	for i, addr := range addrs {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": addr.Label}).
			SetReplacement(addr).
			SetUpsert(true)
	}
	_, err := a.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return carvererr.Store(err, "upserting %d addresses", len(addrs))
	}
	return nil
}

func (a *mongoAddressStore) MaxSequence(ctx context.Context) (int64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "sequence", Value: -1}}).SetHint(bson.D{{Key: "sequence", Value: 1}})
	var addr Address
	err := a.coll.FindOne(ctx, bson.M{}, opts).Decode(&addr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, carvererr.Store(err, "fetching max address sequence")
	}
	return addr.Sequence, nil
}

func (a *mongoAddressStore) DeleteFromBlockHeight(ctx context.Context, height int64) error {
	_, err := a.coll.DeleteMany(ctx, bson.M{"block_height": bson.M{"$gte": height}})
	if err != nil {
		return carvererr.Store(err, "deleting addresses from block height %d", height)
	}
	return nil
}
