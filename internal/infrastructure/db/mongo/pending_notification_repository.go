package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/msblog/userpost-system/internal/core/ports"
)

const collectionPendingNotifications = "pending_notifications"

type pendingDoc struct {
	ID          string     `bson:"_id"`
	UserID      int64      `bson:"user_id"`
	Attempts    int        `bson:"attempts"`
	LastError   string     `bson:"last_error,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	PublishedAt *time.Time `bson:"published_at,omitempty"`
}

// PendingNotificationRepository is the users service retry queue for cascade
// notifications whose in-line publish failed. It lives in the users database.
type PendingNotificationRepository struct {
	col *mongo.Collection
}

func NewPendingNotificationRepository(db *mongo.Database) *PendingNotificationRepository {
	return &PendingNotificationRepository{col: db.Collection(collectionPendingNotifications)}
}

func (r *PendingNotificationRepository) Add(ctx context.Context, userID int64, cause error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := pendingDoc{
		ID:        uuid.NewString(),
		UserID:    userID,
		Attempts:  1,
		CreatedAt: time.Now().UTC(),
	}
	if cause != nil {
		doc.LastError = cause.Error()
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("queue pending notification: %w", err)
	}
	return nil
}

// Poll returns unpublished entries, oldest first.
func (r *PendingNotificationRepository) Poll(ctx context.Context, limit int) ([]ports.PendingNotification, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{"published_at": nil}, opts)
	if err != nil {
		return nil, fmt.Errorf("poll pending notifications: %w", err)
	}

	var docs []pendingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode pending notifications: %w", err)
	}

	out := make([]ports.PendingNotification, len(docs))
	for i, d := range docs {
		out[i] = ports.PendingNotification{
			ID:        d.ID,
			UserID:    d.UserID,
			Attempts:  d.Attempts,
			LastError: d.LastError,
			CreatedAt: d.CreatedAt,
		}
	}
	return out, nil
}

func (r *PendingNotificationRepository) MarkPublished(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"published_at": now}})
	if err != nil {
		return fmt.Errorf("mark notification published: %w", err)
	}
	return nil
}

func (r *PendingNotificationRepository) MarkFailed(ctx context.Context, id string, cause error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{}
	if cause != nil {
		set["last_error"] = cause.Error()
	}
	update := bson.M{"$inc": bson.M{"attempts": 1}}
	if len(set) > 0 {
		update["$set"] = set
	}
	if _, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}

// EnsureIndexes creates the index used by Poll.
func (r *PendingNotificationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "published_at", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return err
}
