package store

import (
	"context"
	"errors"
	"time"

	"github.com/serroba/url-shortener/internal/shortener"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const linksCollection = "links"

type linkDocument struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	ShortID     string        `bson:"shortId"`
	OriginalURL string        `bson:"originalUrl"`
	CreatedAt   time.Time     `bson:"createdAt"`
}

// MongoStore is a MongoDB implementation of shortener.Repository.
type MongoStore struct {
	links *mongo.Collection
}

// NewMongoStore creates a MongoDB-backed link store.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{links: db.Collection(linksCollection)}
}

// EnsureIndexes creates the unique index the store relies on for duplicate detection.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.links.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "shortId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return err
}

func (m *MongoStore) Create(ctx context.Context, link *shortener.Link) error {
	_, err := m.links.InsertOne(ctx, linkDocument{
		ShortID:     string(link.Code),
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return shortener.ErrDuplicateCode
		}

		return err
	}

	return nil
}

func (m *MongoStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.Link, error) {
	var doc linkDocument

	err := m.links.FindOne(ctx, bson.D{{Key: "shortId", Value: string(code)}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return &shortener.Link{
		Code:        shortener.Code(doc.ShortID),
		OriginalURL: doc.OriginalURL,
		CreatedAt:   doc.CreatedAt,
	}, nil
}

var _ shortener.Repository = (*MongoStore)(nil)
