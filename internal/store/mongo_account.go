package store

import (
	"context"
	"errors"
	"time"

	"github.com/serroba/url-shortener/internal/account"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const accountsCollection = "accounts"

type accountDocument struct {
	ID                  string     `bson:"_id"`
	Name                string     `bson:"name"`
	Email               string     `bson:"email"`
	PasswordHash        string     `bson:"passwordHash"`
	EmailVerified       bool       `bson:"emailVerified"`
	VerificationCode    *string    `bson:"verificationCode,omitempty"`
	VerificationExpires *time.Time `bson:"verificationExpires,omitempty"`
	CreatedAt           time.Time  `bson:"createdAt"`
}

func toAccountDocument(acc *account.Account) accountDocument {
	doc := accountDocument{
		ID:            acc.ID,
		Name:          acc.Name,
		Email:         acc.Email,
		PasswordHash:  acc.PasswordHash,
		EmailVerified: acc.EmailVerified,
		CreatedAt:     acc.CreatedAt,
	}

	if acc.Pending != nil {
		code, expires := acc.Pending.Code, acc.Pending.ExpiresAt
		doc.VerificationCode = &code
		doc.VerificationExpires = &expires
	}

	return doc
}

func (d accountDocument) toAccount() *account.Account {
	acc := &account.Account{
		ID:            d.ID,
		Name:          d.Name,
		Email:         d.Email,
		PasswordHash:  d.PasswordHash,
		EmailVerified: d.EmailVerified,
		CreatedAt:     d.CreatedAt,
	}

	// A half-written pending verification is treated as absent.
	if d.VerificationCode != nil && d.VerificationExpires != nil {
		acc.Pending = &account.PendingVerification{
			Code:      *d.VerificationCode,
			ExpiresAt: *d.VerificationExpires,
		}
	}

	return acc
}

// MongoAccountStore is a MongoDB implementation of account.Repository.
type MongoAccountStore struct {
	accounts *mongo.Collection
}

// NewMongoAccountStore creates a MongoDB-backed account store.
func NewMongoAccountStore(db *mongo.Database) *MongoAccountStore {
	return &MongoAccountStore{accounts: db.Collection(accountsCollection)}
}

// EnsureIndexes creates the unique email index.
func (m *MongoAccountStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return err
}

func (m *MongoAccountStore) Create(ctx context.Context, acc *account.Account) error {
	if _, err := m.accounts.InsertOne(ctx, toAccountDocument(acc)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.ErrEmailTaken
		}

		return err
	}

	return nil
}

func (m *MongoAccountStore) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	var doc accountDocument

	err := m.accounts.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, account.ErrNotFound
		}

		return nil, err
	}

	return doc.toAccount(), nil
}

func (m *MongoAccountStore) MarkVerified(ctx context.Context, id string) error {
	return m.update(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{{Key: "emailVerified", Value: true}}},
		{Key: "$unset", Value: bson.D{
			{Key: "verificationCode", Value: ""},
			{Key: "verificationExpires", Value: ""},
		}},
	})
}

func (m *MongoAccountStore) UpdatePending(ctx context.Context, id string, pending account.PendingVerification) error {
	return m.update(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "verificationCode", Value: pending.Code},
			{Key: "verificationExpires", Value: pending.ExpiresAt},
		}},
	})
}

func (m *MongoAccountStore) update(ctx context.Context, id string, update bson.D) error {
	res, err := m.accounts.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		return account.ErrNotFound
	}

	return nil
}

var _ account.Repository = (*MongoAccountStore)(nil)
