package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks the Razorpay payment signature: hex-encoded
// HMAC-SHA256 of "<order_id>|<payment_id>" keyed by the shared secret. The
// comparison is constant time.
func VerifySignature(secret, razorpayOrderID, razorpayPaymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(razorpayOrderID + "|" + razorpayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
