package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/impulso-digital/leadshub/app/dto"
	businessflow "github.com/impulso-digital/leadshub/business_flow"
	"github.com/impulso-digital/leadshub/utils"
)

// MeetingHandlerInterface defines the contract for slot availability handlers
type MeetingHandlerInterface interface {
	AvailableSlots(c fiber.Ctx) error
}

// MeetingHandler handles meeting slot HTTP requests
type MeetingHandler struct {
	slotFlow businessflow.SlotFlow
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(slotFlow businessflow.SlotFlow) *MeetingHandler {
	return &MeetingHandler{slotFlow: slotFlow}
}

func (h *MeetingHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *MeetingHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// AvailableSlots returns bookable session slots
// @Summary Available Slots
// @Description List session slots for a date, or a date range via start/end
// @Tags Meetings
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param start query string false "Range start (YYYY-MM-DD)"
// @Param end query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} dto.APIResponse{data=dto.AvailableSlotsResponse} "Slots"
// @Failure 400 {object} dto.APIResponse "Bad date"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/meetings/available-slots [get]
func (h *MeetingHandler) AvailableSlots(c fiber.Ctx) error {
	ctx := h.createRequestContext(c, "/api/v1/meetings/available-slots")

	date := c.Query("date")
	start := c.Query("start")
	end := c.Query("end")

	var result any
	var err error
	if date != "" {
		result, err = h.slotFlow.AvailableSlots(ctx, date)
	} else {
		result, err = h.slotFlow.AvailableSlotsRange(ctx, start, end)
	}
	if err != nil {
		if businessflow.IsDateOutOfRange(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Date outside the booking window", "DATE_OUT_OF_RANGE", nil)
		}
		if be, ok := businessflow.AsBusinessError(err); ok && be.Code == businessflow.CodeValidationError {
			return h.ErrorResponse(c, fiber.StatusBadRequest, be.Message, "VALIDATION_ERROR", nil)
		}

		log.Println("Available slots failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load slots", "SLOTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Slots loaded", result)
}

func (h *MeetingHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
