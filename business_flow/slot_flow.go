package businessflow

import (
	"context"
	"time"

	"github.com/impulso-digital/leadshub/app/dto"
	"github.com/impulso-digital/leadshub/repository"
	"github.com/impulso-digital/leadshub/utils"
)

// Slot unavailability reasons surfaced in availability responses
const (
	SlotReasonPast   = "past"
	SlotReasonBooked = "booked"
	SlotReasonHeld   = "held"
)

// SlotFlow computes bookable session slots against the shared calendar
type SlotFlow interface {
	AvailableSlots(ctx context.Context, date string) (*dto.AvailableSlotsResponse, error)
	AvailableSlotsRange(ctx context.Context, start, end string) (*dto.AvailableSlotsRangeResponse, error)
}

// SlotFlowImpl implements the slot availability business flow
type SlotFlowImpl struct {
	meetingRepo     repository.MeetingRepository
	transactionRepo repository.TransactionRepository
	location        *time.Location
	now             func() time.Time
}

// NewSlotFlow creates a new slot flow instance. The now function is injectable
// so availability math is testable against fixed clocks.
func NewSlotFlow(
	meetingRepo repository.MeetingRepository,
	transactionRepo repository.TransactionRepository,
	location *time.Location,
	now func() time.Time,
) SlotFlow {
	if now == nil {
		now = time.Now
	}
	return &SlotFlowImpl{
		meetingRepo:     meetingRepo,
		transactionRepo: transactionRepo,
		location:        location,
		now:             now,
	}
}

// CandidateSlots returns the fixed catalog of session start times for a day.
// day must be midnight in the business timezone.
func CandidateSlots(day time.Time) []time.Time {
	slots := make([]time.Time, 0, utils.LastSlotHour-utils.FirstSlotHour+1)
	for hour := utils.FirstSlotHour; hour <= utils.LastSlotHour; hour++ {
		slots = append(slots, day.Add(time.Duration(hour)*time.Hour))
	}
	return slots
}

// SlotsOverlap reports whether two session windows collide. Each window is
// [start, start+4h); the test is start < otherEnd AND end > otherStart.
func SlotsOverlap(start, other time.Time) bool {
	duration := time.Duration(utils.SessionDurationHours) * time.Hour
	end := start.Add(duration)
	otherEnd := other.Add(duration)
	return start.Before(otherEnd) && end.After(other)
}

// AvailableSlots computes availability for one day (YYYY-MM-DD)
func (f *SlotFlowImpl) AvailableSlots(ctx context.Context, date string) (*dto.AvailableSlotsResponse, error) {
	day, err := f.parseDay(date)
	if err != nil {
		return nil, err
	}
	if err := f.checkHorizon(day); err != nil {
		return nil, err
	}
	return f.buildDay(ctx, day)
}

// AvailableSlotsRange computes availability for each day in [start, end],
// clamped to today..today+3 months. An empty start defaults to today; an
// empty end defaults to start.
func (f *SlotFlowImpl) AvailableSlotsRange(ctx context.Context, start, end string) (*dto.AvailableSlotsRangeResponse, error) {
	today := f.today()
	horizon := today.AddDate(0, utils.BookingHorizonMonths, 0)

	from := today
	if start != "" {
		from, _ = f.parseDay(start)
		if from.IsZero() {
			return nil, NewBusinessError(CodeValidationError, "Invalid start date, expected YYYY-MM-DD", nil)
		}
	}
	to := from
	if end != "" {
		to, _ = f.parseDay(end)
		if to.IsZero() {
			return nil, NewBusinessError(CodeValidationError, "Invalid end date, expected YYYY-MM-DD", nil)
		}
	}
	if to.Before(from) {
		return nil, NewBusinessError(CodeValidationError, "End date before start date", nil)
	}

	// Clamp instead of rejecting so callers can always ask for "everything"
	if from.Before(today) {
		from = today
	}
	if to.After(horizon) {
		to = horizon
	}

	resp := &dto.AvailableSlotsRangeResponse{}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		dayResp, err := f.buildDay(ctx, day)
		if err != nil {
			return nil, err
		}
		resp.Days = append(resp.Days, *dayResp)
	}
	return resp, nil
}

func (f *SlotFlowImpl) parseDay(date string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, f.location)
	if err != nil {
		return time.Time{}, NewBusinessError(CodeValidationError, "Invalid date, expected YYYY-MM-DD", err)
	}
	return day, nil
}

func (f *SlotFlowImpl) today() time.Time {
	now := f.now().In(f.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, f.location)
}

func (f *SlotFlowImpl) checkHorizon(day time.Time) error {
	today := f.today()
	if day.Before(today) {
		return NewBusinessError(CodeValidationError, "Date is in the past", ErrDateOutOfRange)
	}
	if day.After(today.AddDate(0, utils.BookingHorizonMonths, 0)) {
		return NewBusinessError(CodeValidationError, "Date is beyond the booking horizon", ErrDateOutOfRange)
	}
	return nil
}

// buildDay assembles the slot list for one day. Occupied windows come from
// scheduled meetings plus soft holds: in-flight transactions whose payment
// may still complete.
func (f *SlotFlowImpl) buildDay(ctx context.Context, day time.Time) (*dto.AvailableSlotsResponse, error) {
	dayEnd := day.AddDate(0, 0, 1)

	meetings, err := f.meetingRepo.ListScheduledInRange(ctx, day, dayEnd)
	if err != nil {
		return nil, NewBusinessError("SLOT_LOOKUP_FAILED", "Failed to load meetings", err)
	}
	holds, err := f.transactionRepo.ListHoldsInRange(ctx, day, dayEnd)
	if err != nil {
		return nil, NewBusinessError("SLOT_LOOKUP_FAILED", "Failed to load payment holds", err)
	}

	booked := make([]time.Time, 0, len(meetings))
	for _, m := range meetings {
		booked = append(booked, m.ScheduledAt.In(f.location))
	}
	held := make([]time.Time, 0, len(holds))
	for _, tx := range holds {
		held = append(held, tx.MeetingSlot.In(f.location))
	}

	resp := &dto.AvailableSlotsResponse{Date: day.Format("2006-01-02")}
	cutoff := f.now().In(f.location).Add(utils.SlotLeadTime)

	for _, slot := range CandidateSlots(day) {
		entry := dto.SlotDTO{Time: slot.Format(time.RFC3339), Available: true}

		// Meetings are checked before holds so a slot overlapping both
		// always reports booked
		switch {
		case !slot.After(cutoff):
			entry.Available = false
			entry.Reason = SlotReasonPast
		case overlapsAny(slot, booked):
			entry.Available = false
			entry.Reason = SlotReasonBooked
		case overlapsAny(slot, held):
			entry.Available = false
			entry.Reason = SlotReasonHeld
		}
		resp.Slots = append(resp.Slots, entry)
	}
	return resp, nil
}

func overlapsAny(slot time.Time, starts []time.Time) bool {
	for _, start := range starts {
		if SlotsOverlap(slot, start) {
			return true
		}
	}
	return false
}
