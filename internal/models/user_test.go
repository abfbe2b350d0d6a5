package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForCoins(t *testing.T) {
	assert.Equal(t, LevelBeginner, LevelForCoins(0))
	assert.Equal(t, LevelBeginner, LevelForCoins(499))
	assert.Equal(t, LevelIntermediate, LevelForCoins(500))
	assert.Equal(t, LevelIntermediate, LevelForCoins(1499))
	assert.Equal(t, LevelAdvanced, LevelForCoins(1500))
	assert.Equal(t, LevelAdvanced, LevelForCoins(2999))
	assert.Equal(t, LevelExpert, LevelForCoins(3000))
	assert.Equal(t, LevelExpert, LevelForCoins(100000))
}

func TestHasRefreshToken(t *testing.T) {
	u := &User{RefreshTokens: []string{"tok-a", "tok-b"}}
	assert.True(t, u.HasRefreshToken("tok-a"))
	assert.False(t, u.HasRefreshToken("tok-c"))
	assert.False(t, (&User{}).HasRefreshToken("tok-a"))
}

// The JSON surface is camelCase throughout; timestamps included. The
// password hash and checkout signature never leave the server.
func TestWireFormatIsCamelCase(t *testing.T) {
	now := time.Now()

	out, err := json.Marshal(User{Password: "hash", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"createdAt"`)
	assert.Contains(t, string(out), `"updatedAt"`)
	assert.Contains(t, string(out), `"completedQuiz"`)
	assert.NotContains(t, string(out), `"created_at"`)
	assert.NotContains(t, string(out), "hash")

	out, err = json.Marshal(Transaction{RazorpaySignature: "sig", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"createdAt"`)
	assert.Contains(t, string(out), `"updatedAt"`)
	assert.Contains(t, string(out), `"razorpayOrderId"`)
	assert.NotContains(t, string(out), `"updated_at"`)
	assert.NotContains(t, string(out), "sig")
}

func TestTransactionEnums(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusCancelled))
	assert.False(t, ValidStatus("settled"))

	assert.True(t, ValidPaymentMethod(MethodUPI))
	assert.False(t, ValidPaymentMethod("cheque"))

	assert.Len(t, Categories, 14)
	assert.True(t, ValidCategory("groceries"))
	assert.False(t, ValidCategory("gambling"))
}
