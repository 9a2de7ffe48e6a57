package businessflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impulso-digital/leadshub/app/dto"
	"github.com/impulso-digital/leadshub/app/services"
	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/repository"
	testdb "github.com/impulso-digital/leadshub/testing"
	"github.com/impulso-digital/leadshub/utils"
)

// memoryRateLimiter is an in-process RateLimitService for tests
type memoryRateLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMemoryRateLimiter() *memoryRateLimiter {
	return &memoryRateLimiter{counts: make(map[string]int64)}
}

func (m *memoryRateLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], window, nil
}

func (m *memoryRateLimiter) Peek(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key], nil
}

func newLeadFlow(db *testdb.TestDB, limiter services.RateLimitService) LeadFlow {
	return NewLeadFlow(
		repository.NewLeadRepository(db.DB),
		repository.NewReferrerRepository(db.DB),
		repository.NewReferralHitRepository(db.DB),
		limiter,
		services.NewNoopNotificationService(),
		db.DB,
	)
}

func leadRequest(whatsapp string, referralCode *string) *dto.CreateLeadRequest {
	return &dto.CreateLeadRequest{
		Name:         "Maria Silva",
		Email:        "Maria@Example.com",
		Whatsapp:     whatsapp,
		ReferralCode: referralCode,
	}
}

func TestCreateLead(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		flow := newLeadFlow(db, newMemoryRateLimiter())
		leadRepo := repository.NewLeadRepository(db.DB)
		ctx := testdb.CreateTestContext()

		t.Run("plain submission", func(t *testing.T) {
			resp, err := flow.CreateLead(ctx, leadRequest("+55 (11) 98765-4321", nil),
				NewClientMetadata("203.0.113.10", "Mozilla/5.0 (iPhone) Safari/604.1"))
			require.NoError(t, err)
			assert.Equal(t, "maria@example.com", resp.Lead.Email)
			assert.Equal(t, "5511987654321", resp.Lead.Whatsapp)
			assert.Equal(t, string(models.LeadStageNaBase), resp.Lead.Stage)
			assert.Nil(t, resp.Lead.ReferralCode)

			stored, err := leadRepo.ByUUID(ctx, resp.Lead.UUID)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, "mobile", *stored.Device)
			assert.Equal(t, "ios", *stored.OS)
		})

		t.Run("whatsapp without digits rejected", func(t *testing.T) {
			_, err := flow.CreateLead(ctx, leadRequest("no-digits", nil),
				NewClientMetadata("203.0.113.11", "Mozilla/5.0"))
			require.Error(t, err)
		})

		t.Run("unknown referral code silently dropped", func(t *testing.T) {
			code := "NOSUCHCODE"
			resp, err := flow.CreateLead(ctx, leadRequest("5511911110001", &code),
				NewClientMetadata("203.0.113.12", "Mozilla/5.0"))
			require.NoError(t, err)
			assert.Nil(t, resp.Lead.ReferralCode)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCreateLeadReferralAttribution(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		fixtures := testdb.NewTestFixtures(db)
		flow := newLeadFlow(db, newMemoryRateLimiter())
		hitRepo := repository.NewReferralHitRepository(db.DB)
		ctx := testdb.CreateTestContext()

		referrer, err := fixtures.CreateTestReferrer()
		require.NoError(t, err)

		t.Run("referred lead records a hit", func(t *testing.T) {
			resp, err := flow.CreateLead(ctx, leadRequest("5511922220001", &referrer.ReferralCode),
				NewClientMetadata("203.0.113.20", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0"))
			require.NoError(t, err)
			require.NotNil(t, resp.Lead.ReferralCode)
			assert.Equal(t, referrer.ReferralCode, *resp.Lead.ReferralCode)

			count, err := hitRepo.CountByCode(ctx, referrer.ReferralCode)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("inactive referrer code dropped", func(t *testing.T) {
			inactive, err := fixtures.CreateTestReferrer()
			require.NoError(t, err)
			require.NoError(t, db.DB.Model(inactive).Update("status", models.ReferrerStatusInactive).Error)

			resp, err := flow.CreateLead(ctx, leadRequest("5511922220002", &inactive.ReferralCode),
				NewClientMetadata("203.0.113.21", "Mozilla/5.0"))
			require.NoError(t, err)
			assert.Nil(t, resp.Lead.ReferralCode)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCreateLeadFraudChecks(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		fixtures := testdb.NewTestFixtures(db)
		flow := newLeadFlow(db, newMemoryRateLimiter())
		ctx := testdb.CreateTestContext()

		referrer, err := fixtures.CreateTestReferrer()
		require.NoError(t, err)

		_, err = flow.CreateLead(ctx, leadRequest("5511933330001", &referrer.ReferralCode),
			NewClientMetadata("203.0.113.30", "Mozilla/5.0 (Linux; Android 14) Chrome/120.0"))
		require.NoError(t, err)

		t.Run("same whatsapp under same code rejected", func(t *testing.T) {
			_, err := flow.CreateLead(ctx, leadRequest("5511933330001", &referrer.ReferralCode),
				NewClientMetadata("203.0.113.31", "Mozilla/5.0 (Macintosh) Firefox/121.0"))
			require.Error(t, err)
			assert.True(t, IsDuplicateReferral(err))
		})

		t.Run("same ip under same code rejected", func(t *testing.T) {
			_, err := flow.CreateLead(ctx, leadRequest("5511933330002", &referrer.ReferralCode),
				NewClientMetadata("203.0.113.30", "Mozilla/5.0 (Macintosh) Firefox/121.0"))
			require.Error(t, err)
			assert.True(t, IsDuplicateReferral(err))
		})

		t.Run("same person without referral code accepted", func(t *testing.T) {
			_, err := flow.CreateLead(ctx, leadRequest("5511933330001", nil),
				NewClientMetadata("203.0.113.32", "Mozilla/5.0"))
			assert.NoError(t, err)
		})

		t.Run("user agent reuse cap", func(t *testing.T) {
			agent := "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0 FarmBrowser"
			for i := 0; i < utils.MaxUserAgentRepeats; i++ {
				phone := fmt.Sprintf("551194444%04d", i)
				ip := fmt.Sprintf("203.0.113.%d", 40+i)
				_, err := flow.CreateLead(ctx, leadRequest(phone, &referrer.ReferralCode),
					NewClientMetadata(ip, agent))
				require.NoError(t, err)
			}
			_, err := flow.CreateLead(ctx, leadRequest("5511944449999", &referrer.ReferralCode),
				NewClientMetadata("203.0.113.49", agent))
			require.Error(t, err)
			assert.True(t, IsDuplicateReferral(err))
		})

		t.Run("missing user agent never matches the fingerprint checks", func(t *testing.T) {
			for i := 0; i <= utils.MaxUserAgentRepeats; i++ {
				phone := fmt.Sprintf("551196666%04d", i)
				ip := fmt.Sprintf("203.0.113.%d", 60+i)
				_, err := flow.CreateLead(ctx, leadRequest(phone, &referrer.ReferralCode),
					NewClientMetadata(ip, ""))
				require.NoError(t, err)
			}
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCreateLeadVelocityCap(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		limiter := newMemoryRateLimiter()
		flow := newLeadFlow(db, limiter)
		leadRepo := repository.NewLeadRepository(db.DB)
		ctx := testdb.CreateTestContext()

		ip := "203.0.113.99"
		for i := 0; i < utils.MaxLeadsPerIPWindow; i++ {
			phone := fmt.Sprintf("551195555%04d", i)
			_, err := flow.CreateLead(ctx, leadRequest(phone, nil), NewClientMetadata(ip, "Mozilla/5.0"))
			require.NoError(t, err)
		}

		_, err := flow.CreateLead(ctx, leadRequest("5511955559999", nil), NewClientMetadata(ip, "Mozilla/5.0"))
		require.Error(t, err)
		assert.True(t, IsTooManyLeadsFromIP(err))

		rle, ok := AsRateLimitError(err)
		require.True(t, ok)
		assert.Equal(t, utils.VelocityWindow, rle.RetryAfter)

		t.Run("rejected submissions do not consume the allowance", func(t *testing.T) {
			_, err := flow.CreateLead(ctx, leadRequest("5511955559998", nil), NewClientMetadata(ip, "Mozilla/5.0"))
			require.Error(t, err)
			assert.True(t, IsTooManyLeadsFromIP(err))

			count, err := leadRepo.Count(ctx, models.LeadFilter{IPAddress: &ip})
			require.NoError(t, err)
			assert.Equal(t, int64(utils.MaxLeadsPerIPWindow), count)
		})

		t.Run("attempt throttle trips before anything is stored", func(t *testing.T) {
			hotIP := "203.0.113.98"
			limiter.mu.Lock()
			limiter.counts["leads:ip:"+hotIP] = utils.MaxLeadAttemptsPerIP
			limiter.mu.Unlock()

			_, err := flow.CreateLead(ctx, leadRequest("5511955550100", nil), NewClientMetadata(hotIP, "Mozilla/5.0"))
			require.Error(t, err)
			assert.True(t, IsTooManyLeadsFromIP(err))

			count, err := leadRepo.Count(ctx, models.LeadFilter{IPAddress: &hotIP})
			require.NoError(t, err)
			assert.Zero(t, count)
		})

		return nil
	})
	require.NoError(t, err)
}
