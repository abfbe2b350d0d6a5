package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/finplay/finplay-gobackend/internal/models"
	"github.com/finplay/finplay-gobackend/internal/token"
)

// Coins awarded the first time the onboarding quiz is completed.
const quizBonusCoins = 100

type UserService struct {
	users        *mongo.Collection
	transactions *mongo.Collection
	tokens       *token.Manager
	bcryptCost   int
}

func NewUserService(db *mongo.Database, tokens *token.Manager, bcryptCost int) *UserService {
	return &UserService{
		users:        db.Collection("users"),
		transactions: db.Collection("transactions"),
		tokens:       tokens,
		bcryptCost:   bcryptCost,
	}
}

// RefreshTTL exposes the refresh token lifetime for the session cookie.
func (s *UserService) RefreshTTL() time.Duration {
	return s.tokens.RefreshTTL()
}

// Register creates a user with default gamification state and opens a session.
func (s *UserService) Register(ctx context.Context, name, mobile, email, password string) (*models.User, string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	count, err := s.users.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"mobile": mobile},
		bson.M{"email": email},
	}})
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if count > 0 {
		return nil, "", "", ErrDuplicate
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:            primitive.NewObjectID(),
		Name:          name,
		Mobile:        mobile,
		Email:         email,
		Password:      string(hash),
		Coins:         0,
		Level:         models.LevelBeginner,
		CompletedQuiz: false,
		RefreshTokens: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, "", "", ErrDuplicate
		}
		return nil, "", "", fmt.Errorf("failed to create user: %w", err)
	}

	access, refresh, err := s.openSession(ctx, user)
	if err != nil {
		return nil, "", "", err
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID.Hex()}).Info("user registered")
	return user, access, refresh, nil
}

// Login authenticates by mobile or email. Unknown identifier and wrong
// password return the same error so account existence is not leaked.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*models.User, string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var user models.User
	err := s.users.FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"mobile": identifier},
		bson.M{"email": identifier},
	}}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, "", "", ErrInvalidCredentials
		}
		return nil, "", "", fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	access, refresh, err := s.openSession(ctx, &user)
	if err != nil {
		return nil, "", "", err
	}

	return &user, access, refresh, nil
}

// openSession mints both tokens and persists the refresh token so it can be
// revoked independently at logout.
func (s *UserService) openSession(ctx context.Context, user *models.User) (string, string, error) {
	access, err := s.tokens.GenerateAccess(user.ID.Hex(), user.Mobile)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefresh(user.ID.Hex())
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	_, err = s.users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{
		"$push": bson.M{"refresh_tokens": refresh},
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return access, refresh, nil
}

// Refresh verifies the refresh token, confirms it has not been revoked, and
// mints a new access token. The refresh token itself is not rotated.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", ErrRefreshRevoked
	}

	user, err := s.UserByID(ctx, claims.UserID)
	if err != nil {
		return "", ErrRefreshRevoked
	}
	if !user.HasRefreshToken(refreshToken) {
		return "", ErrRefreshRevoked
	}

	return s.tokens.GenerateAccess(user.ID.Hex(), user.Mobile)
}

// Logout removes the presented refresh token from the user's stored list.
func (s *UserService) Logout(ctx context.Context, userID primitive.ObjectID, refreshToken string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$pull": bson.M{"refresh_tokens": refreshToken},
	})
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// UserByID loads a user by hex id.
func (s *UserService) UserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": objID}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// UpdateProfile changes the user's name and/or email. A changed email is
// re-checked for uniqueness before the write.
func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, name, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"updated_at": time.Now()}
	if name != "" {
		set["name"] = name
	}
	if email != "" {
		count, err := s.users.CountDocuments(ctx, bson.M{"email": email, "_id": bson.M{"$ne": userID}})
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if count > 0 {
			return nil, ErrDuplicate
		}
		set["email"] = email
	}

	if _, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.UserByID(ctx, userID.Hex())
}

// UpdateCoins applies a coin delta. The balance floors at zero and the level
// is recomputed from the resulting balance.
func (s *UserService) UpdateCoins(ctx context.Context, userID primitive.ObjectID, delta int) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	user, err := s.UserByID(ctx, userID.Hex())
	if err != nil {
		return nil, err
	}

	coins := user.Coins + delta
	if coins < 0 {
		coins = 0
	}

	update := bson.M{"$set": bson.M{
		"coins":      coins,
		"level":      models.LevelForCoins(coins),
		"updated_at": time.Now(),
	}}
	if _, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, update); err != nil {
		return nil, fmt.Errorf("failed to update coins: %w", err)
	}

	user.Coins = coins
	user.Level = models.LevelForCoins(coins)
	return user, nil
}

// CompleteQuiz marks the quiz done and awards the bonus once. Repeat calls
// are acknowledged without a second award.
func (s *UserService) CompleteQuiz(ctx context.Context, userID primitive.ObjectID) (*models.User, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	user, err := s.UserByID(ctx, userID.Hex())
	if err != nil {
		return nil, false, err
	}
	if user.CompletedQuiz {
		return user, true, nil
	}

	coins := user.Coins + quizBonusCoins
	update := bson.M{"$set": bson.M{
		"completed_quiz": true,
		"coins":          coins,
		"level":          models.LevelForCoins(coins),
		"updated_at":     time.Now(),
	}}
	if _, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, update); err != nil {
		return nil, false, fmt.Errorf("failed to complete quiz: %w", err)
	}

	user.CompletedQuiz = true
	user.Coins = coins
	user.Level = models.LevelForCoins(coins)
	return user, false, nil
}

// DeleteAccount verifies the password, then removes the user's transactions
// and the user document.
func (s *UserService) DeleteAccount(ctx context.Context, userID primitive.ObjectID, password string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	user, err := s.UserByID(ctx, userID.Hex())
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	if _, err := s.transactions.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	if _, err := s.users.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	logrus.WithFields(logrus.Fields{"user_id": userID.Hex()}).Info("account deleted")
	return nil
}
