package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/internal/domain/repository"
)

const UsersCollection = "users"

type userDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password"`
	FirstName string        `bson:"first_name,omitempty"`
	LastName  string        `bson:"last_name,omitempty"`
	Address   string        `bson:"address,omitempty"`
	City      string        `bson:"city,omitempty"`
	State     string        `bson:"state,omitempty"`
	Zip       string        `bson:"zip,omitempty"`
	CreatedAt time.Time     `bson:"create_date"`
	Confirmed bool          `bson:"confirmed"`
}

func toDocument(u *entity.User) userDocument {
	return userDocument{
		Email:     u.Email,
		Password:  u.PasswordHash,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Address:   u.Address,
		City:      u.City,
		State:     u.State,
		Zip:       u.Zip,
		CreatedAt: u.CreatedAt,
		Confirmed: u.Confirmed,
	}
}

func (d userDocument) toEntity() *entity.User {
	return &entity.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.Password,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Address:      d.Address,
		City:         d.City,
		State:        d.State,
		Zip:          d.Zip,
		Confirmed:    d.Confirmed,
		CreatedAt:    d.CreatedAt,
	}
}

type UserRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

func NewUserRepository(client *mongo.Client, database string) *UserRepository {
	return &UserRepository{
		client: client,
		coll:   client.Database(database).Collection(UsersCollection),
		now:    time.Now,
	}
}

// EnsureIndexes creates the unique email index if it is missing.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter any) (*entity.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapError(err)
	}
	return doc.toEntity(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now().UTC()
	}
	doc := toDocument(u)
	doc.ID = bson.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mapError(err)
	}
	u.ID = doc.ID.Hex()
	return nil
}

func (r *UserRepository) UpdateConfirmed(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return repository.ErrConfirmedIsMonotonic
	}
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"confirmed": true}})
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func mapError(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicateKey
	default:
		return err
	}
}

var _ repository.UserRepository = (*UserRepository)(nil)
