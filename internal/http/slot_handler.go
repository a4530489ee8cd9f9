package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/prompt-scheduler/internal/persistence"
)

type slotLister interface {
	ListSlots(ctx context.Context, filter persistence.SlotFilter) ([]persistence.Slot, error)
}

type SlotHandler struct {
	slots     slotLister
	responder responder
	logger    *slog.Logger
}

func NewSlotHandler(slots slotLister, logger *slog.Logger) *SlotHandler {
	return &SlotHandler{slots: slots, responder: newResponder(logger), logger: defaultLogger(logger)}
}

func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.slots == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	groupID, ok := GroupIDFromContext(r.Context())
	if !ok || strings.TrimSpace(groupID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidGroupID)
		return
	}

	filter, err := buildSlotFilter(groupID, r.URL.Query())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	slots, err := h.slots.ListSlots(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSlotsResponse{Slots: toSlotDTOs(slots)})
}

func buildSlotFilter(groupID string, values url.Values) (persistence.SlotFilter, error) {
	filter := persistence.SlotFilter{GroupID: groupID}

	if from := strings.TrimSpace(values.Get("from")); from != "" {
		ts, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return persistence.SlotFilter{}, errBadDateParam("from")
		}
		filter.From = &ts
	}
	if to := strings.TrimSpace(values.Get("to")); to != "" {
		ts, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return persistence.SlotFilter{}, errBadDateParam("to")
		}
		filter.To = &ts
	}
	if general := strings.TrimSpace(values.Get("general")); general == "true" {
		filter.GeneralOnly = true
	}

	return filter, nil
}

type badDateParamError struct {
	param string
}

func (e badDateParamError) Error() string {
	return e.param + " must use the 2006-01-02 format"
}

func errBadDateParam(param string) error {
	return badDateParamError{param: param}
}

type listSlotsResponse struct {
	Slots []slotDTO `json:"slots"`
}

type slotDTO struct {
	ID       string  `json:"id"`
	PromptID string  `json:"prompt_id"`
	Date     string  `json:"date"`
	UserID   *string `json:"user_id,omitempty"`
	DeckID   *string `json:"deck_id,omitempty"`
}

func toSlotDTOs(slots []persistence.Slot) []slotDTO {
	if len(slots) == 0 {
		return nil
	}

	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotDTO{
			ID:       slot.ID,
			PromptID: slot.PromptID,
			Date:     slot.Date.Format(time.DateOnly),
			UserID:   slot.UserID,
			DeckID:   slot.DeckID,
		})
	}
	return out
}
