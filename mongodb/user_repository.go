package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rewardly/rewardly/domain"
	"github.com/rewardly/rewardly/internal/ledger"
)

// UserRepository implements domain.UserRepository on MongoDB. The balance
// mutations are conditional single-document updates, so they are atomic
// per user without any application-side locking.
type UserRepository struct {
	users *mongo.Collection
}

// NewUserRepository creates the repository and ensures its indexes.
func NewUserRepository(ctx context.Context, db *mongo.Database) (*UserRepository, error) {
	repo := &UserRepository{users: db.Collection(UsersCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		// Index creation commonly fails when compatible indexes already
		// exist; not fatal for startup.
		log.Warn().Err(err).Msg("failed to ensure user indexes")
	}
	return repo, nil
}

func (r *UserRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
	}
	if _, err := r.users.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes for users collection: %w", err)
	}
	return nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ConnectedAccounts == nil {
		user.ConnectedAccounts = []string{}
	}
	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailTaken
		}
		log.Error().Err(err).Str("email", user.Email).Msg("error creating user")
		return err
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		log.Error().Err(err).Str("id", id).Msg("error getting user by ID")
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		log.Error().Err(err).Str("email", email).Msg("error getting user by email")
		return nil, err
	}
	return &user, nil
}

// ApplyConnectionBonus adds platform and credits the ledger's connection
// bonus in one conditional update. The filter excludes users that already
// carry the platform, so concurrent redemptions credit at most once.
func (r *UserRepository) ApplyConnectionBonus(ctx context.Context, id, platform string) (*domain.User, error) {
	if !domain.ValidPlatform(platform) {
		return nil, domain.ErrInvalidPlatform
	}

	filter := bson.M{
		"_id":                id,
		"connected_accounts": bson.M{"$ne": platform},
	}
	update := bson.M{
		"$addToSet": bson.M{"connected_accounts": platform},
		"$inc":      bson.M{"points": ledger.ConnectionBonus},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user domain.User
	err := r.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		log.Error().Err(err).Str("id", id).Str("platform", platform).Msg("error applying connection bonus")
		return nil, err
	}

	// No match: either the user does not exist or the platform is already
	// connected.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrAlreadyConnected
}

// ApplyWithdrawal debits points and credits earnings, conditional on the
// balance still covering the debit at update time.
func (r *UserRepository) ApplyWithdrawal(ctx context.Context, id string, points, rupees int64) (*domain.User, error) {
	filter := bson.M{
		"_id":    id,
		"points": bson.M{"$gte": points},
	}
	update := bson.M{
		"$inc": bson.M{"points": -points, "earnings": rupees},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user domain.User
	err := r.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		log.Error().Err(err).Str("id", id).Msg("error applying withdrawal")
		return nil, err
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrInsufficientBalance
}

// SetFacebookData replaces the stored Facebook connection wholesale.
func (r *UserRepository) SetFacebookData(ctx context.Context, id string, data *domain.FacebookData) error {
	update := bson.M{"$set": bson.M{
		"facebook_data": data,
		"updated_at":    time.Now().UTC(),
	}}
	result, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("error storing facebook data")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// RecordLogin updates the last-login timestamp.
func (r *UserRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	update := bson.M{"$set": bson.M{"last_login_at": at}}
	result, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

var _ domain.UserRepository = (*UserRepository)(nil)
