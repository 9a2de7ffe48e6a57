package businessflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/repository"
	testdb "github.com/impulso-digital/leadshub/testing"
	"github.com/impulso-digital/leadshub/utils"
)

// saveLeadAt inserts a lead with an explicit creation time so tier ordering
// is deterministic regardless of insertion speed.
func saveLeadAt(t *testing.T, db *testdb.TestDB, lead *models.Lead, createdAt time.Time) *models.Lead {
	t.Helper()
	lead.CreatedAt = createdAt
	lead.UpdatedAt = createdAt
	if lead.Name == "" {
		lead.Name = "Maria Silva"
	}
	if lead.Stage == "" {
		lead.Stage = models.LeadStageNaBase
	}
	require.NoError(t, db.DB.Create(lead).Error)
	return lead
}

func TestResolveAttribution(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		fixtures := testdb.NewTestFixtures(db)
		resolver := NewAttributionResolver(
			repository.NewLeadRepository(db.DB),
			repository.NewReferrerRepository(db.DB),
		)
		ctx := testdb.CreateTestContext()

		referrer, err := fixtures.CreateTestReferrer()
		require.NoError(t, err)

		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		t.Run("lead already carrying a code", func(t *testing.T) {
			lead := saveLeadAt(t, db, &models.Lead{
				Email:        "direct@example.com",
				Whatsapp:     "5511900000001",
				ReferralCode: &referrer.ReferralCode,
			}, base)

			resolved, err := resolver.Resolve(ctx, lead)
			require.NoError(t, err)
			require.NotNil(t, resolved)
			assert.Equal(t, referrer.ID, resolved.ID)
		})

		t.Run("inherits through whatsapp", func(t *testing.T) {
			saveLeadAt(t, db, &models.Lead{
				Email:        "first@example.com",
				Whatsapp:     "5511900000002",
				ReferralCode: &referrer.ReferralCode,
			}, base)
			buyer := saveLeadAt(t, db, &models.Lead{
				Email:    "second@example.com",
				Whatsapp: "5511900000002",
			}, base.Add(time.Hour))

			resolved, err := resolver.Resolve(ctx, buyer)
			require.NoError(t, err)
			require.NotNil(t, resolved)
			assert.Equal(t, referrer.ID, resolved.ID)
			require.NotNil(t, buyer.ReferralCode)
			assert.Equal(t, referrer.ReferralCode, *buyer.ReferralCode)

			// Inherited code is persisted on the buyer row
			var reloaded models.Lead
			require.NoError(t, db.DB.First(&reloaded, buyer.ID).Error)
			require.NotNil(t, reloaded.ReferralCode)
			assert.Equal(t, referrer.ReferralCode, *reloaded.ReferralCode)
		})

		t.Run("inherits through email when whatsapp differs", func(t *testing.T) {
			saveLeadAt(t, db, &models.Lead{
				Email:        "shared@example.com",
				Whatsapp:     "5511900000003",
				ReferralCode: &referrer.ReferralCode,
			}, base)
			buyer := saveLeadAt(t, db, &models.Lead{
				Email:    "shared@example.com",
				Whatsapp: "5511900000004",
			}, base.Add(time.Hour))

			resolved, err := resolver.Resolve(ctx, buyer)
			require.NoError(t, err)
			require.NotNil(t, resolved)
			assert.Equal(t, referrer.ID, resolved.ID)
		})

		t.Run("whatsapp tier beats email tier", func(t *testing.T) {
			other, err := fixtures.CreateTestReferrer()
			require.NoError(t, err)

			saveLeadAt(t, db, &models.Lead{
				Email:        "tier-email@example.com",
				Whatsapp:     "5511900000005",
				ReferralCode: &other.ReferralCode,
			}, base)
			saveLeadAt(t, db, &models.Lead{
				Email:        "tier-other@example.com",
				Whatsapp:     "5511900000006",
				ReferralCode: &referrer.ReferralCode,
			}, base.Add(time.Minute))
			buyer := saveLeadAt(t, db, &models.Lead{
				Email:    "tier-email@example.com",
				Whatsapp: "5511900000006",
			}, base.Add(time.Hour))

			resolved, err := resolver.Resolve(ctx, buyer)
			require.NoError(t, err)
			require.NotNil(t, resolved)
			assert.Equal(t, referrer.ID, resolved.ID)
		})

		t.Run("inherits through ip and user agent fingerprint", func(t *testing.T) {
			ip := "203.0.113.77"
			agent := "mozilla/5.0 (iphone) safari/604.1"
			saveLeadAt(t, db, &models.Lead{
				Email:        "finger-one@example.com",
				Whatsapp:     "5511900000007",
				ReferralCode: &referrer.ReferralCode,
				IPAddress:    utils.ToPtr(ip),
				UserAgent:    utils.ToPtr(agent),
			}, base)
			buyer := saveLeadAt(t, db, &models.Lead{
				Email:     "finger-two@example.com",
				Whatsapp:  "5511900000008",
				IPAddress: utils.ToPtr(ip),
				UserAgent: utils.ToPtr(agent),
			}, base.Add(time.Hour))

			resolved, err := resolver.Resolve(ctx, buyer)
			require.NoError(t, err)
			require.NotNil(t, resolved)
			assert.Equal(t, referrer.ID, resolved.ID)
		})

		t.Run("unknown user agent never fingerprints", func(t *testing.T) {
			ip := "203.0.113.78"
			saveLeadAt(t, db, &models.Lead{
				Email:        "agentless-one@example.com",
				Whatsapp:     "5511900000011",
				ReferralCode: &referrer.ReferralCode,
				IPAddress:    utils.ToPtr(ip),
				UserAgent:    utils.ToPtr(utils.UnknownUserAgent),
			}, base)
			buyer := saveLeadAt(t, db, &models.Lead{
				Email:     "agentless-two@example.com",
				Whatsapp:  "5511900000012",
				IPAddress: utils.ToPtr(ip),
				UserAgent: utils.ToPtr(utils.UnknownUserAgent),
			}, base.Add(time.Hour))

			resolved, err := resolver.Resolve(ctx, buyer)
			require.NoError(t, err)
			assert.Nil(t, resolved)
		})

		t.Run("later lead is never a prior", func(t *testing.T) {
			buyer := saveLeadAt(t, db, &models.Lead{
				Email:    "future@example.com",
				Whatsapp: "5511900000009",
			}, base)
			saveLeadAt(t, db, &models.Lead{
				Email:        "future@example.com",
				Whatsapp:     "5511900000009",
				ReferralCode: &referrer.ReferralCode,
			}, base.Add(time.Hour))

			resolved, err := resolver.Resolve(ctx, buyer)
			require.NoError(t, err)
			assert.Nil(t, resolved)
			assert.Nil(t, buyer.ReferralCode)
		})

		t.Run("no matching prior stays unattributed", func(t *testing.T) {
			buyer := saveLeadAt(t, db, &models.Lead{
				Email:    "nobody@example.com",
				Whatsapp: "5511900000010",
			}, base.Add(time.Hour))

			resolved, err := resolver.Resolve(ctx, buyer)
			require.NoError(t, err)
			assert.Nil(t, resolved)
		})

		return nil
	})
	require.NoError(t, err)
}
