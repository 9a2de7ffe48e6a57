// Package testing provides test utilities and database setup for testing the lead capture system
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

func randomDigits(n int) string {
	digits := make([]byte, n)
	for i := range digits {
		digits[i] = byte('0' + rand.Intn(10))
	}
	return string(digits)
}

// CreateTestLead creates a lead with optional referral attribution
func (tf *TestFixtures) CreateTestLead(referralCode *string) (*models.Lead, error) {
	suffix := randomDigits(8)

	lead := &models.Lead{
		Name:         "Maria Silva",
		Email:        fmt.Sprintf("maria.%s@example.com", suffix),
		Whatsapp:     "5511" + randomDigits(9),
		Stage:        models.LeadStageNaBase,
		ReferralCode: referralCode,
	}

	if err := tf.DB.DB.Create(lead).Error; err != nil {
		return nil, fmt.Errorf("failed to create test lead: %w", err)
	}

	return lead, nil
}

// CreateTestReferrer creates an active referrer with a random code and token
func (tf *TestFixtures) CreateTestReferrer() (*models.Referrer, error) {
	suffix := randomDigits(8)

	code, err := utils.GenerateReferralCode(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate referral code: %w", err)
	}
	token, err := utils.GenerateHexToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	referrer := &models.Referrer{
		Name:         "Joao Pereira",
		Email:        fmt.Sprintf("joao.%s@example.com", suffix),
		Whatsapp:     "5521" + randomDigits(9),
		ReferralCode: code,
		Token:        token,
		Status:       models.ReferrerStatusActive,
	}

	if err := tf.DB.DB.Create(referrer).Error; err != nil {
		return nil, fmt.Errorf("failed to create test referrer: %w", err)
	}

	return referrer, nil
}

// CreateTestInfluencer creates an influencer referrer whose code is the given slug
func (tf *TestFixtures) CreateTestInfluencer(slug string) (*models.Referrer, error) {
	suffix := randomDigits(8)

	token, err := utils.GenerateHexToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	referrer := &models.Referrer{
		Name:         "Ana Costa",
		Email:        fmt.Sprintf("ana.%s@example.com", suffix),
		Whatsapp:     "5531" + randomDigits(9),
		ReferralCode: slug,
		Token:        token,
		IsInfluencer: true,
		Slug:         &slug,
		Status:       models.ReferrerStatusActive,
	}

	if err := tf.DB.DB.Create(referrer).Error; err != nil {
		return nil, fmt.Errorf("failed to create test influencer: %w", err)
	}

	return referrer, nil
}

// CreateTestHit records a referral link visit for the given code and IP
func (tf *TestFixtures) CreateTestHit(referralCode, ipAddress string) (*models.ReferralHit, error) {
	hit := &models.ReferralHit{
		ReferralCode: referralCode,
		IPAddress:    ipAddress,
		UserAgent:    "mozilla/5.0 (test)",
	}

	if err := tf.DB.DB.Create(hit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test hit: %w", err)
	}

	return hit, nil
}

// CreateTestTransaction creates a payment attempt for the given lead and slot
func (tf *TestFixtures) CreateTestTransaction(leadID uint, method models.PaymentMethod, status models.TransactionStatus, slot time.Time) (*models.Transaction, error) {
	ref := fmt.Sprintf("pi_test_%s", randomDigits(10))

	tx := &models.Transaction{
		LeadID:            leadID,
		Amount:            utils.ProductAmountCents,
		PaymentMethod:     method,
		Status:            status,
		ProviderReference: &ref,
		MeetingSlot:       slot,
	}

	if err := tf.DB.DB.Create(tx).Error; err != nil {
		return nil, fmt.Errorf("failed to create test transaction: %w", err)
	}

	return tx, nil
}

// CreateTestAffiliateTransaction creates a transaction credited to an affiliate
func (tf *TestFixtures) CreateTestAffiliateTransaction(leadID, affiliateID uint, method models.PaymentMethod, status models.TransactionStatus, slot time.Time) (*models.Transaction, error) {
	ref := fmt.Sprintf("pi_test_%s", randomDigits(10))

	tx := &models.Transaction{
		LeadID:            leadID,
		AffiliateID:       &affiliateID,
		Amount:            utils.ProductAmountCents,
		AmountAffiliate:   utils.AffiliateAmountCents,
		PaymentMethod:     method,
		Status:            status,
		ProviderReference: &ref,
		MeetingSlot:       slot,
	}

	if err := tf.DB.DB.Create(tx).Error; err != nil {
		return nil, fmt.Errorf("failed to create test transaction: %w", err)
	}

	return tx, nil
}

// CreateTestMeeting books a session for the given lead and transaction
func (tf *TestFixtures) CreateTestMeeting(leadID, transactionID uint, scheduledAt time.Time) (*models.Meeting, error) {
	meeting := &models.Meeting{
		LeadID:        leadID,
		TransactionID: transactionID,
		ScheduledAt:   scheduledAt,
		Status:        models.MeetingStatusScheduled,
	}

	if err := tf.DB.DB.Create(meeting).Error; err != nil {
		return nil, fmt.Errorf("failed to create test meeting: %w", err)
	}

	return meeting, nil
}
