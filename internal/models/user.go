package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User levels, unlocked by coin balance.
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
	LevelExpert       = "Expert"
)

// User model
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Mobile        string             `bson:"mobile" json:"mobile"`
	Email         string             `bson:"email" json:"email"`
	Password      string             `bson:"password" json:"-"`
	Coins         int                `bson:"coins" json:"coins"`
	Level         string             `bson:"level" json:"level"`
	CompletedQuiz bool               `bson:"completed_quiz" json:"completedQuiz"`
	RefreshTokens []string           `bson:"refresh_tokens" json:"-"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}

// LevelForCoins maps a coin balance to the level it unlocks.
func LevelForCoins(coins int) string {
	switch {
	case coins >= 3000:
		return LevelExpert
	case coins >= 1500:
		return LevelAdvanced
	case coins >= 500:
		return LevelIntermediate
	default:
		return LevelBeginner
	}
}

// HasRefreshToken reports whether the token is still in the user's active list.
func (u *User) HasRefreshToken(token string) bool {
	for _, t := range u.RefreshTokens {
		if t == token {
			return true
		}
	}
	return false
}
