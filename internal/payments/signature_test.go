package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "rzp_test_secret"
	sig := sign(secret, "order_abc", "pay_xyz")

	assert.True(t, VerifySignature(secret, "order_abc", "pay_xyz", sig))
	assert.False(t, VerifySignature(secret, "order_abc", "pay_other", sig))
	assert.False(t, VerifySignature(secret, "order_other", "pay_xyz", sig))
	assert.False(t, VerifySignature("wrong_secret", "order_abc", "pay_xyz", sig))
	assert.False(t, VerifySignature(secret, "order_abc", "pay_xyz", ""))
	assert.False(t, VerifySignature("", "order_abc", "pay_xyz", sig))
}
