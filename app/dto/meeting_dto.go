// Package dto contains Data Transfer Objects for API request and response structures
package dto

// SlotDTO represents one candidate meeting slot in availability responses
type SlotDTO struct {
	Time      string `json:"time"` // RFC3339 in the business timezone
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"` // past | booked | held
}

// AvailableSlotsResponse represents the availability of one day
type AvailableSlotsResponse struct {
	Date  string    `json:"date"`
	Slots []SlotDTO `json:"slots"`
}

// AvailableSlotsRangeResponse represents availability over a date range
type AvailableSlotsRangeResponse struct {
	Days []AvailableSlotsResponse `json:"days"`
}

// MeetingDTO represents a booked session for API responses
type MeetingDTO struct {
	UUID        string `json:"uuid"`
	ScheduledAt string `json:"scheduled_at"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}
