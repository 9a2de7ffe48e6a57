package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := NewStripeClient("", "sk_test", testWebhookSecret, 0)
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	now := time.Now().Unix()

	t.Run("valid signature", func(t *testing.T) {
		header := fmt.Sprintf("t=%d,v1=%s", now, signPayload(testWebhookSecret, now, payload))
		assert.NoError(t, client.VerifyWebhookSignature(payload, header, 0))
	})

	t.Run("multiple v1 entries, one valid", func(t *testing.T) {
		header := fmt.Sprintf("t=%d,v1=%s,v1=%s", now, "deadbeef", signPayload(testWebhookSecret, now, payload))
		assert.NoError(t, client.VerifyWebhookSignature(payload, header, 0))
	})

	t.Run("missing header", func(t *testing.T) {
		assert.Error(t, client.VerifyWebhookSignature(payload, "", 0))
	})

	t.Run("malformed header", func(t *testing.T) {
		assert.Error(t, client.VerifyWebhookSignature(payload, "garbage", 0))
	})

	t.Run("wrong secret", func(t *testing.T) {
		header := fmt.Sprintf("t=%d,v1=%s", now, signPayload("whsec_other", now, payload))
		assert.Error(t, client.VerifyWebhookSignature(payload, header, 0))
	})

	t.Run("tampered payload", func(t *testing.T) {
		header := fmt.Sprintf("t=%d,v1=%s", now, signPayload(testWebhookSecret, now, payload))
		assert.Error(t, client.VerifyWebhookSignature([]byte(`{"id":"evt_2"}`), header, 0))
	})

	t.Run("stale timestamp", func(t *testing.T) {
		old := time.Now().Add(-10 * time.Minute).Unix()
		header := fmt.Sprintf("t=%d,v1=%s", old, signPayload(testWebhookSecret, old, payload))
		assert.Error(t, client.VerifyWebhookSignature(payload, header, 5*time.Minute))
	})
}

func TestParseWebhookEvent(t *testing.T) {
	client := NewStripeClient("", "sk_test", testWebhookSecret, 0)
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","status":"succeeded","amount":20000,"currency":"brl"}}}`)
	now := time.Now().Unix()
	header := fmt.Sprintf("t=%d,v1=%s", now, signPayload(testWebhookSecret, now, payload))

	event, err := client.ParseWebhookEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "payment_intent.succeeded", event.Type)
	assert.Equal(t, "pi_123", event.Data.Object.ID)
	assert.Equal(t, int64(20000), event.Data.Object.Amount)

	_, err = client.ParseWebhookEvent(payload, "t=1,v1=bad")
	assert.Error(t, err)
}
