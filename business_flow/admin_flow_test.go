package businessflow

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/impulso-digital/leadshub/app/dto"
	"github.com/impulso-digital/leadshub/app/services"
	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/repository"
	testdb "github.com/impulso-digital/leadshub/testing"
)

const (
	testAdminEmail    = "admin@impulso.digital"
	testAdminPassword = "correct horse battery staple"
)

func newAdminFlow(t *testing.T, db *testdb.TestDB) AdminFlow {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.DefaultCost)
	require.NoError(t, err)

	tokenSvc, err := services.NewTokenService(time.Hour, "test-issuer", "test-audience", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)

	return NewAdminFlow(
		repository.NewReferrerRepository(db.DB),
		repository.NewLeadRepository(db.DB),
		repository.NewReferralHitRepository(db.DB),
		tokenSvc,
		testAdminEmail,
		string(hash),
		db.DB,
	)
}

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		slug  string
		valid bool
	}{
		{"mariafit", true},
		{"maria-fit", true},
		{"maria_fit_2", true},
		{"abc", true},
		{"ab", false},
		{"this-slug-is-way-too-long-to-be-accepted", false},
		{"Maria", false},
		{"maria fit", false},
		{"maria.fit", false},
		{"-maria", false},
		{"maria-", false},
		{"_maria", false},
		{"maria_", false},
		{"admin", false},
		{"api", false},
		{"checkout", false},
		{"login", false},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			err := validateSlug(tt.slug)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, IsInvalidSlug(err))
			}
		})
	}
}

func TestAdminLogin(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		flow := newAdminFlow(t, db)
		ctx := testdb.CreateTestContext()

		t.Run("valid credentials", func(t *testing.T) {
			resp, err := flow.Login(ctx, &dto.AdminLoginRequest{
				Email:    "Admin@Impulso.Digital",
				Password: testAdminPassword,
			})
			require.NoError(t, err)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, "Bearer", resp.TokenType)
			assert.Equal(t, int(time.Hour.Seconds()), resp.ExpiresIn)
		})

		t.Run("wrong password", func(t *testing.T) {
			_, err := flow.Login(ctx, &dto.AdminLoginRequest{
				Email:    testAdminEmail,
				Password: "wrong",
			})
			require.Error(t, err)
			assert.True(t, IsInvalidCredentials(err))
		})

		t.Run("wrong email", func(t *testing.T) {
			_, err := flow.Login(ctx, &dto.AdminLoginRequest{
				Email:    "intruder@example.com",
				Password: testAdminPassword,
			})
			require.Error(t, err)
			assert.True(t, IsInvalidCredentials(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCreateInfluencer(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		flow := newAdminFlow(t, db)
		ctx := testdb.CreateTestContext()

		t.Run("successful creation", func(t *testing.T) {
			resp, err := flow.CreateInfluencer(ctx, &dto.CreateInfluencerRequest{
				Name:     "Maria Influencer",
				Email:    "maria@example.com",
				Whatsapp: "5511987654321",
				Slug:     "MariaFit",
			})
			require.NoError(t, err)
			assert.Equal(t, "mariafit", resp.Influencer.Slug)
			assert.Equal(t, "mariafit", resp.Influencer.ReferralCode)
			assert.Len(t, resp.Token, 64)
			assert.Equal(t, string(models.ReferrerStatusActive), resp.Influencer.Status)
		})

		t.Run("slug taken", func(t *testing.T) {
			_, err := flow.CreateInfluencer(ctx, &dto.CreateInfluencerRequest{
				Name:     "Other",
				Email:    "other@example.com",
				Whatsapp: "5511911112222",
				Slug:     "mariafit",
			})
			require.Error(t, err)
			assert.True(t, IsSlugTaken(err))
		})

		t.Run("reserved slug rejected", func(t *testing.T) {
			_, err := flow.CreateInfluencer(ctx, &dto.CreateInfluencerRequest{
				Name:     "Other",
				Email:    "reserved@example.com",
				Whatsapp: "5511933334444",
				Slug:     "admin",
			})
			require.Error(t, err)
			assert.True(t, IsInvalidSlug(err))
		})

		t.Run("duplicate email rejected", func(t *testing.T) {
			_, err := flow.CreateInfluencer(ctx, &dto.CreateInfluencerRequest{
				Name:     "Dup",
				Email:    "maria@example.com",
				Whatsapp: "5511955556666",
				Slug:     "otherslug",
			})
			require.Error(t, err)
			assert.True(t, IsReferrerEmailExists(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestToggleInfluencer(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		fixtures := testdb.NewTestFixtures(db)
		flow := newAdminFlow(t, db)
		ctx := testdb.CreateTestContext()

		influencer, err := fixtures.CreateTestInfluencer("togglefit")
		require.NoError(t, err)

		resp, err := flow.ToggleInfluencer(ctx, influencer.UUID.String())
		require.NoError(t, err)
		assert.Equal(t, string(models.ReferrerStatusInactive), resp.Status)

		resp, err = flow.ToggleInfluencer(ctx, influencer.UUID.String())
		require.NoError(t, err)
		assert.Equal(t, string(models.ReferrerStatusActive), resp.Status)

		t.Run("unknown influencer", func(t *testing.T) {
			_, err := flow.ToggleInfluencer(ctx, "00000000-0000-0000-0000-000000000000")
			require.Error(t, err)
			assert.True(t, IsReferrerNotFound(err))
		})

		t.Run("plain referrer not toggleable", func(t *testing.T) {
			referrer, err := fixtures.CreateTestReferrer()
			require.NoError(t, err)
			_, err = flow.ToggleInfluencer(ctx, referrer.UUID.String())
			require.Error(t, err)
			assert.True(t, IsReferrerNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestListInfluencers(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		fixtures := testdb.NewTestFixtures(db)
		flow := newAdminFlow(t, db)
		ctx := testdb.CreateTestContext()

		influencer, err := fixtures.CreateTestInfluencer("listfit")
		require.NoError(t, err)

		// Plain referrers stay out of the influencer listing
		_, err = fixtures.CreateTestReferrer()
		require.NoError(t, err)

		// One click, two leads, one conversion
		_, err = fixtures.CreateTestHit(influencer.ReferralCode, "203.0.113.70")
		require.NoError(t, err)
		buyer, err := fixtures.CreateTestLead(&influencer.ReferralCode)
		require.NoError(t, err)
		require.NoError(t, db.DB.Model(buyer).Update("stage", models.LeadStageComprado).Error)
		_, err = fixtures.CreateTestLead(&influencer.ReferralCode)
		require.NoError(t, err)

		resp, err := flow.ListInfluencers(ctx)
		require.NoError(t, err)
		require.Len(t, resp.Influencers, 1)

		row := resp.Influencers[0]
		assert.Equal(t, "listfit", row.Slug)
		assert.Equal(t, int64(1), row.Clicks)
		assert.Equal(t, int64(2), row.Leads)
		assert.Equal(t, int64(1), row.Conversions)

		return nil
	})
	require.NoError(t, err)
}

func TestExportInfluencers(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		fixtures := testdb.NewTestFixtures(db)
		flow := newAdminFlow(t, db)
		ctx := testdb.CreateTestContext()

		_, err := fixtures.CreateTestInfluencer("exportfit")
		require.NoError(t, err)

		content, filename, err := flow.ExportInfluencers(ctx)
		require.NoError(t, err)
		assert.Contains(t, filename, "influencers_")
		assert.Contains(t, filename, ".xlsx")

		wb, err := excelize.OpenReader(bytes.NewReader(content))
		require.NoError(t, err)
		defer wb.Close()

		rows, err := wb.GetRows("Influencers")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Name", rows[0][0])
		assert.Contains(t, rows[1], "exportfit")

		return nil
	})
	require.NoError(t, err)
}

func TestListLeads(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		fixtures := testdb.NewTestFixtures(db)
		flow := newAdminFlow(t, db)
		ctx := testdb.CreateTestContext()

		for i := 0; i < 3; i++ {
			_, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)
		}
		buyer, err := fixtures.CreateTestLead(nil)
		require.NoError(t, err)
		require.NoError(t, db.DB.Model(buyer).Update("stage", models.LeadStageComprado).Error)

		t.Run("all leads, default paging", func(t *testing.T) {
			resp, err := flow.ListLeads(ctx, 0, 0, "")
			require.NoError(t, err)
			assert.Equal(t, int64(4), resp.Total)
			assert.Len(t, resp.Leads, 4)
			assert.Equal(t, 1, resp.Page)
		})

		t.Run("filter by stage", func(t *testing.T) {
			resp, err := flow.ListLeads(ctx, 1, 10, string(models.LeadStageComprado))
			require.NoError(t, err)
			assert.Equal(t, int64(1), resp.Total)
			require.Len(t, resp.Leads, 1)
			assert.Equal(t, buyer.UUID.String(), resp.Leads[0].UUID)
		})

		t.Run("pagination", func(t *testing.T) {
			resp, err := flow.ListLeads(ctx, 2, 3, "")
			require.NoError(t, err)
			assert.Equal(t, int64(4), resp.Total)
			assert.Len(t, resp.Leads, 1)
			assert.Equal(t, 2, resp.Page)
		})

		t.Run("invalid stage rejected", func(t *testing.T) {
			_, err := flow.ListLeads(ctx, 1, 10, "WON")
			require.Error(t, err)
			assert.True(t, IsLeadStageInvalid(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestUpdateLeadStage(t *testing.T) {
	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		fixtures := testdb.NewTestFixtures(db)
		flow := newAdminFlow(t, db)
		ctx := testdb.CreateTestContext()

		lead, err := fixtures.CreateTestLead(nil)
		require.NoError(t, err)

		resp, err := flow.UpdateLeadStage(ctx, lead.UUID.String(), &dto.UpdateLeadStageRequest{
			Stage: string(models.LeadStageEmContato),
		})
		require.NoError(t, err)
		assert.Equal(t, string(models.LeadStageEmContato), resp.Stage)

		t.Run("unknown lead", func(t *testing.T) {
			_, err := flow.UpdateLeadStage(ctx, "00000000-0000-0000-0000-000000000000", &dto.UpdateLeadStageRequest{
				Stage: string(models.LeadStageComprado),
			})
			require.Error(t, err)
			assert.True(t, IsLeadNotFound(err))
		})

		t.Run("invalid stage", func(t *testing.T) {
			_, err := flow.UpdateLeadStage(ctx, lead.UUID.String(), &dto.UpdateLeadStageRequest{Stage: "LOST"})
			require.Error(t, err)
			assert.True(t, IsLeadStageInvalid(err))
		})

		return nil
	})
	require.NoError(t, err)
}
