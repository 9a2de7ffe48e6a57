package businessflow

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impulso-digital/leadshub/app/services"
	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/repository"
	testdb "github.com/impulso-digital/leadshub/testing"
)

const (
	webhookStripeSecret = "whsec_flow_test"
	webhookPixSecret    = "openpix_auth_test"
)

func newWebhookFlow(db *testdb.TestDB) WebhookFlow {
	return NewWebhookFlow(
		repository.NewLeadRepository(db.DB),
		repository.NewTransactionRepository(db.DB),
		repository.NewMeetingRepository(db.DB),
		services.NewStripeClient("", "sk_test_123", webhookStripeSecret, 5*time.Second),
		services.NewOpenPixClient("", "app_test_id", webhookPixSecret, 5*time.Second),
		services.NewNoopNotificationService(),
		db.DB,
	)
}

func stripeSignature(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func stripeEventPayload(eventType, intentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_test_1","type":%q,"data":{"object":{"id":%q,"status":"succeeded","amount":20000,"currency":"brl"}}}`,
		eventType, intentID))
}

func TestHandleStripeEvent(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		fixtures := testdb.NewTestFixtures(db)
		flow := newWebhookFlow(db)
		txRepo := repository.NewTransactionRepository(db.DB)
		meetingRepo := repository.NewMeetingRepository(db.DB)
		leadRepo := repository.NewLeadRepository(db.DB)
		ctx := testdb.CreateTestContext()

		slot := time.Date(2026, 3, 11, 16, 0, 0, 0, time.UTC)

		t.Run("payment succeeded books the meeting", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)
			tx, err := fixtures.CreateTestTransaction(lead.ID, models.PaymentMethodCard,
				models.TransactionStatusRequiresPaymentMethod, slot)
			require.NoError(t, err)

			payload := stripeEventPayload(StripeEventSucceeded, *tx.ProviderReference)
			resp, err := flow.HandleStripeEvent(ctx, payload, stripeSignature(payload, webhookStripeSecret))
			require.NoError(t, err)
			assert.Equal(t, true, resp["received"])

			updated, err := txRepo.ByID(ctx, tx.ID)
			require.NoError(t, err)
			assert.Equal(t, models.TransactionStatusSucceeded, updated.Status)

			meeting, err := meetingRepo.ByTransactionID(ctx, tx.ID)
			require.NoError(t, err)
			require.NotNil(t, meeting)
			assert.Equal(t, lead.ID, meeting.LeadID)
			assert.True(t, meeting.ScheduledAt.Equal(slot))

			promoted, err := leadRepo.ByID(ctx, lead.ID)
			require.NoError(t, err)
			assert.Equal(t, models.LeadStageComprado, promoted.Stage)
		})

		t.Run("redelivery stays idempotent", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)
			tx, err := fixtures.CreateTestTransaction(lead.ID, models.PaymentMethodCard,
				models.TransactionStatusRequiresConfirmation, slot.Add(time.Hour))
			require.NoError(t, err)

			payload := stripeEventPayload(StripeEventSucceeded, *tx.ProviderReference)
			for i := 0; i < 3; i++ {
				_, err := flow.HandleStripeEvent(ctx, payload, stripeSignature(payload, webhookStripeSecret))
				require.NoError(t, err)
			}

			count, err := meetingRepo.Count(ctx, models.MeetingFilter{LeadID: &lead.ID})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("payment failed reopens the attempt", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)
			tx, err := fixtures.CreateTestTransaction(lead.ID, models.PaymentMethodCard,
				models.TransactionStatusProcessing, slot.Add(2*time.Hour))
			require.NoError(t, err)

			payload := stripeEventPayload(StripeEventPaymentFailed, *tx.ProviderReference)
			_, err = flow.HandleStripeEvent(ctx, payload, stripeSignature(payload, webhookStripeSecret))
			require.NoError(t, err)

			updated, err := txRepo.ByID(ctx, tx.ID)
			require.NoError(t, err)
			assert.Equal(t, models.TransactionStatusRequiresPaymentMethod, updated.Status)
		})

		t.Run("intent canceled", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)
			tx, err := fixtures.CreateTestTransaction(lead.ID, models.PaymentMethodCard,
				models.TransactionStatusRequiresPaymentMethod, slot.Add(3*time.Hour))
			require.NoError(t, err)

			payload := stripeEventPayload(StripeEventCanceled, *tx.ProviderReference)
			_, err = flow.HandleStripeEvent(ctx, payload, stripeSignature(payload, webhookStripeSecret))
			require.NoError(t, err)

			updated, err := txRepo.ByID(ctx, tx.ID)
			require.NoError(t, err)
			assert.Equal(t, models.TransactionStatusCanceled, updated.Status)
		})

		t.Run("unknown intent is acknowledged", func(t *testing.T) {
			payload := stripeEventPayload(StripeEventSucceeded, "pi_never_seen")
			resp, err := flow.HandleStripeEvent(ctx, payload, stripeSignature(payload, webhookStripeSecret))
			require.NoError(t, err)
			assert.Equal(t, true, resp["received"])
		})

		t.Run("bad signature is rejected", func(t *testing.T) {
			payload := stripeEventPayload(StripeEventSucceeded, "pi_any")
			_, err := flow.HandleStripeEvent(ctx, payload, stripeSignature(payload, "whsec_wrong"))
			require.Error(t, err)
			assert.True(t, IsInvalidSignature(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func pixEventPayload(event, correlationID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":%q,"charge":{"correlationID":%q,"status":"COMPLETED"}}`,
		event, correlationID))
}

func TestHandlePixEvent(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		fixtures := testdb.NewTestFixtures(db)
		flow := newWebhookFlow(db)
		txRepo := repository.NewTransactionRepository(db.DB)
		meetingRepo := repository.NewMeetingRepository(db.DB)
		ctx := testdb.CreateTestContext()

		slot := time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC)

		// PIX transactions reference the charge by transaction UUID
		createPixTx := func(t *testing.T, status models.TransactionStatus, slot time.Time) *models.Transaction {
			t.Helper()
			lead, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)
			tx, err := fixtures.CreateTestTransaction(lead.ID, models.PaymentMethodPix, status, slot)
			require.NoError(t, err)
			ref := "openpix_" + tx.UUID.String()
			require.NoError(t, db.DB.Model(tx).Update("provider_reference", ref).Error)
			tx.ProviderReference = &ref
			return tx
		}

		t.Run("invalid authorization", func(t *testing.T) {
			_, err := flow.HandlePixEvent(ctx, pixEventPayload(PixEventChargeCompleted, "any"), "wrong")
			require.Error(t, err)
			assert.True(t, IsInvalidSignature(err))
		})

		t.Run("test ping gets an empty body", func(t *testing.T) {
			payload := []byte(`{"event":"teste_webhook","data_criacao":"2026-03-12T10:00:00Z"}`)
			resp, err := flow.HandlePixEvent(ctx, payload, webhookPixSecret)
			require.NoError(t, err)
			assert.Empty(t, resp)
		})

		t.Run("charge completed books the meeting", func(t *testing.T) {
			tx := createPixTx(t, models.TransactionStatusProcessing, slot)

			payload := pixEventPayload(PixEventChargeCompleted, tx.UUID.String())
			resp, err := flow.HandlePixEvent(ctx, payload, webhookPixSecret)
			require.NoError(t, err)
			assert.Equal(t, true, resp["received"])

			updated, err := txRepo.ByID(ctx, tx.ID)
			require.NoError(t, err)
			assert.Equal(t, models.TransactionStatusSucceeded, updated.Status)

			meeting, err := meetingRepo.ByTransactionID(ctx, tx.ID)
			require.NoError(t, err)
			require.NotNil(t, meeting)
		})

		t.Run("charge expired cancels the hold", func(t *testing.T) {
			tx := createPixTx(t, models.TransactionStatusProcessing, slot.Add(time.Hour))

			payload := pixEventPayload(PixEventChargeExpired, tx.UUID.String())
			_, err := flow.HandlePixEvent(ctx, payload, webhookPixSecret)
			require.NoError(t, err)

			updated, err := txRepo.ByID(ctx, tx.ID)
			require.NoError(t, err)
			assert.Equal(t, models.TransactionStatusCanceled, updated.Status)

			meeting, err := meetingRepo.ByTransactionID(ctx, tx.ID)
			require.NoError(t, err)
			assert.Nil(t, meeting)
		})

		t.Run("unknown charge is acknowledged", func(t *testing.T) {
			payload := pixEventPayload(PixEventChargeCompleted, "00000000-0000-4000-8000-000000000000")
			resp, err := flow.HandlePixEvent(ctx, payload, webhookPixSecret)
			require.NoError(t, err)
			assert.Equal(t, true, resp["received"])
		})

		return nil
	})
	require.NoError(t, err)
}
