package businessflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impulso-digital/leadshub/models"
	"github.com/impulso-digital/leadshub/repository"
	testdb "github.com/impulso-digital/leadshub/testing"
)

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

func TestCandidateSlots(t *testing.T) {
	loc := saoPaulo(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)

	slots := CandidateSlots(day)
	require.Len(t, slots, 7)
	assert.Equal(t, 14, slots[0].Hour())
	assert.Equal(t, 20, slots[len(slots)-1].Hour())
	for _, s := range slots {
		assert.Equal(t, day.Day(), s.Day())
		assert.Zero(t, s.Minute())
	}
}

func TestSlotsOverlap(t *testing.T) {
	loc := saoPaulo(t)
	base := time.Date(2026, 3, 10, 16, 0, 0, 0, loc)

	tests := []struct {
		name    string
		other   time.Time
		overlap bool
	}{
		{"same start", base, true},
		{"one hour later", base.Add(1 * time.Hour), true},
		{"three hours later", base.Add(3 * time.Hour), true},
		{"four hours later, windows touch", base.Add(4 * time.Hour), false},
		{"three hours earlier", base.Add(-3 * time.Hour), true},
		{"four hours earlier, windows touch", base.Add(-4 * time.Hour), false},
		{"next day", base.AddDate(0, 0, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlap, SlotsOverlap(base, tt.other))
			assert.Equal(t, tt.overlap, SlotsOverlap(tt.other, base))
		})
	}
}

func TestAvailableSlots(t *testing.T) {
	loc := saoPaulo(t)
	// Fixed clock: mid-morning, all of today's slots are in the future
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)

	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		fixtures := testdb.NewTestFixtures(db)
		meetingRepo := repository.NewMeetingRepository(db.DB)
		transactionRepo := repository.NewTransactionRepository(db.DB)
		flow := NewSlotFlow(meetingRepo, transactionRepo, loc, func() time.Time { return now })

		ctx := testdb.CreateTestContext()

		t.Run("empty calendar, all slots open", func(t *testing.T) {
			resp, err := flow.AvailableSlots(ctx, "2026-03-10")
			require.NoError(t, err)
			assert.Equal(t, "2026-03-10", resp.Date)
			require.Len(t, resp.Slots, 7)
			for _, s := range resp.Slots {
				assert.True(t, s.Available)
				assert.Empty(t, s.Reason)
			}
		})

		t.Run("booked meeting blocks overlapping slots", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)
			slot := time.Date(2026, 3, 11, 16, 0, 0, 0, loc)
			tx, err := fixtures.CreateTestTransaction(lead.ID, models.PaymentMethodCard, models.TransactionStatusSucceeded, slot)
			require.NoError(t, err)
			_, err = fixtures.CreateTestMeeting(lead.ID, tx.ID, slot)
			require.NoError(t, err)

			resp, err := flow.AvailableSlots(ctx, "2026-03-11")
			require.NoError(t, err)
			require.Len(t, resp.Slots, 7)

			// 16:00 meeting occupies [16:00, 20:00); everything before 20:00 collides
			for i, s := range resp.Slots {
				hour := 14 + i
				if hour <= 19 {
					assert.False(t, s.Available, "slot %d should be blocked", hour)
					assert.Equal(t, SlotReasonBooked, s.Reason)
				} else {
					assert.True(t, s.Available, "slot %d should be open", hour)
				}
			}
		})

		t.Run("payment hold blocks overlapping slots", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)
			slot := time.Date(2026, 3, 12, 20, 0, 0, 0, loc)
			_, err = fixtures.CreateTestTransaction(lead.ID, models.PaymentMethodPix, models.TransactionStatusProcessing, slot)
			require.NoError(t, err)

			resp, err := flow.AvailableSlots(ctx, "2026-03-12")
			require.NoError(t, err)

			// 20:00 hold occupies [20:00, 24:00); 17:00+ collide
			for i, s := range resp.Slots {
				hour := 14 + i
				if hour >= 17 {
					assert.False(t, s.Available, "slot %d should be held", hour)
					assert.Equal(t, SlotReasonHeld, s.Reason)
				} else {
					assert.True(t, s.Available, "slot %d should be open", hour)
				}
			}
		})

		t.Run("meeting wins over hold on the same window", func(t *testing.T) {
			booked, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)
			slot := time.Date(2026, 3, 14, 16, 0, 0, 0, loc)
			tx, err := fixtures.CreateTestTransaction(booked.ID, models.PaymentMethodCard, models.TransactionStatusSucceeded, slot)
			require.NoError(t, err)
			_, err = fixtures.CreateTestMeeting(booked.ID, tx.ID, slot)
			require.NoError(t, err)

			holder, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)
			_, err = fixtures.CreateTestTransaction(holder.ID, models.PaymentMethodPix,
				models.TransactionStatusProcessing, time.Date(2026, 3, 14, 18, 0, 0, 0, loc))
			require.NoError(t, err)

			resp, err := flow.AvailableSlots(ctx, "2026-03-14")
			require.NoError(t, err)

			// 17:00 overlaps the meeting and the hold; the meeting decides
			for i, s := range resp.Slots {
				hour := 14 + i
				if hour == 17 {
					assert.False(t, s.Available)
					assert.Equal(t, SlotReasonBooked, s.Reason)
				}
			}
		})

		t.Run("abandoned transaction does not hold its slot", func(t *testing.T) {
			lead, err := fixtures.CreateTestLead(nil)
			require.NoError(t, err)
			slot := time.Date(2026, 3, 13, 16, 0, 0, 0, loc)
			_, err = fixtures.CreateTestTransaction(lead.ID, models.PaymentMethodCard, models.TransactionStatusRequiresPaymentMethod, slot)
			require.NoError(t, err)

			resp, err := flow.AvailableSlots(ctx, "2026-03-13")
			require.NoError(t, err)
			for _, s := range resp.Slots {
				assert.True(t, s.Available)
			}
		})

		t.Run("date in the past rejected", func(t *testing.T) {
			_, err := flow.AvailableSlots(ctx, "2026-03-09")
			require.Error(t, err)
			assert.True(t, IsDateOutOfRange(err))
		})

		t.Run("date beyond horizon rejected", func(t *testing.T) {
			_, err := flow.AvailableSlots(ctx, "2026-06-11")
			require.Error(t, err)
			assert.True(t, IsDateOutOfRange(err))
		})

		t.Run("malformed date rejected", func(t *testing.T) {
			_, err := flow.AvailableSlots(ctx, "10/03/2026")
			require.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAvailableSlotsCutoff(t *testing.T) {
	loc := saoPaulo(t)
	// Fixed clock: 15:45, so 14:00-16:00 fall inside the 30 minute lead time
	now := time.Date(2026, 3, 10, 15, 45, 0, 0, loc)

	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		meetingRepo := repository.NewMeetingRepository(db.DB)
		transactionRepo := repository.NewTransactionRepository(db.DB)
		flow := NewSlotFlow(meetingRepo, transactionRepo, loc, func() time.Time { return now })

		resp, err := flow.AvailableSlots(testdb.CreateTestContext(), "2026-03-10")
		require.NoError(t, err)
		require.Len(t, resp.Slots, 7)

		for i, s := range resp.Slots {
			hour := 14 + i
			if hour <= 16 {
				assert.False(t, s.Available, "slot %d is within the lead time", hour)
				assert.Equal(t, SlotReasonPast, s.Reason)
			} else {
				assert.True(t, s.Available, "slot %d should be open", hour)
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestAvailableSlotsRange(t *testing.T) {
	loc := saoPaulo(t)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)

	err := testdb.TestWithDB(func(db *testdb.TestDB) error {
		meetingRepo := repository.NewMeetingRepository(db.DB)
		transactionRepo := repository.NewTransactionRepository(db.DB)
		flow := NewSlotFlow(meetingRepo, transactionRepo, loc, func() time.Time { return now })

		ctx := testdb.CreateTestContext()

		t.Run("explicit range", func(t *testing.T) {
			resp, err := flow.AvailableSlotsRange(ctx, "2026-03-10", "2026-03-12")
			require.NoError(t, err)
			require.Len(t, resp.Days, 3)
			assert.Equal(t, "2026-03-10", resp.Days[0].Date)
			assert.Equal(t, "2026-03-12", resp.Days[2].Date)
		})

		t.Run("empty start defaults to today", func(t *testing.T) {
			resp, err := flow.AvailableSlotsRange(ctx, "", "")
			require.NoError(t, err)
			require.Len(t, resp.Days, 1)
			assert.Equal(t, "2026-03-10", resp.Days[0].Date)
		})

		t.Run("range clamped to horizon", func(t *testing.T) {
			resp, err := flow.AvailableSlotsRange(ctx, "2026-06-01", "2026-07-01")
			require.NoError(t, err)
			require.NotEmpty(t, resp.Days)
			assert.Equal(t, "2026-06-10", resp.Days[len(resp.Days)-1].Date)
		})

		t.Run("start in the past clamped to today", func(t *testing.T) {
			resp, err := flow.AvailableSlotsRange(ctx, "2026-03-01", "2026-03-11")
			require.NoError(t, err)
			require.Len(t, resp.Days, 2)
			assert.Equal(t, "2026-03-10", resp.Days[0].Date)
		})

		t.Run("reversed range rejected", func(t *testing.T) {
			_, err := flow.AvailableSlotsRange(ctx, "2026-03-12", "2026-03-10")
			require.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}
