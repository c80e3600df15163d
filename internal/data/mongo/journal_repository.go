package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pawsitter-settlement/internal/domain/journal"
)

const (
	// JournalCollectionName is the name of the wallet journal collection in MongoDB
	JournalCollectionName = "wallet_journal"
)

// JournalRepository implements the journal.Repository interface for MongoDB
type JournalRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewJournalRepository creates a new MongoDB journal repository
func NewJournalRepository(logger *slog.Logger, db *mongo.Database) *JournalRepository {
	return &JournalRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique event index the journal relies on for
// idempotent appends, plus the per-sitter activity index.
func (r *JournalRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(JournalCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uq_event_id"),
		},
		{
			Keys:    bson.D{{Key: "sitter_id", Value: 1}, {Key: "occurred_at", Value: -1}},
			Options: options.Index().SetName("idx_sitter_occurred_at"),
		},
	})
	if err != nil {
		r.logger.Error("Failed to create journal indexes", "error", err)
		return fmt.Errorf("failed to create journal indexes: %w", err)
	}

	return nil
}

// Append stores a journal entry.
// Returns ErrDuplicateEntry if the event was already journaled.
func (r *JournalRepository) Append(ctx context.Context, entry *journal.Entry) error {
	collection := r.db.Collection(JournalCollectionName)

	if _, err := collection.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return journal.ErrDuplicateEntry{EventID: entry.EventID}
		}
		r.logger.Error("Failed to append journal entry",
			"event_id", entry.EventID.String(),
			"event_type", string(entry.EventType),
			"error", err)
		return fmt.Errorf("failed to append journal entry: %w", err)
	}

	return nil
}

// GetByEventID retrieves a journal entry by its event ID.
// Returns ErrEntryNotFound if the event was never journaled.
func (r *JournalRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*journal.Entry, error) {
	collection := r.db.Collection(JournalCollectionName)

	var entry journal.Entry
	err := collection.FindOne(ctx, bson.M{"event_id": eventID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, journal.ErrEntryNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get journal entry",
			"event_id", eventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}

	return &entry, nil
}

// ListBySitterID retrieves a sitter's wallet activity, newest first
func (r *JournalRepository) ListBySitterID(ctx context.Context, sitterID uuid.UUID, limit, offset int) ([]*journal.Entry, error) {
	collection := r.db.Collection(JournalCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"sitter_id": sitterID}, opts)
	if err != nil {
		r.logger.Error("Failed to list journal entries",
			"sitter_id", sitterID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]*journal.Entry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode journal entries",
			"sitter_id", sitterID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode journal entries: %w", err)
	}

	return entries, nil
}

// CountBySitterID counts the journal entries of a sitter
func (r *JournalRepository) CountBySitterID(ctx context.Context, sitterID uuid.UUID) (int64, error) {
	collection := r.db.Collection(JournalCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"sitter_id": sitterID})
	if err != nil {
		r.logger.Error("Failed to count journal entries",
			"sitter_id", sitterID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}

	return count, nil
}
