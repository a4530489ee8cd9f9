package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/prompt-scheduler/internal/application"
	"github.com/example/prompt-scheduler/internal/scheduler"
)

type queueService interface {
	InitializeQueue(ctx context.Context, groupID string, overrides application.EligibilityOverrides) (application.Result, error)
	Regenerate(ctx context.Context, groupID string) (application.Result, error)
}

type QueueHandler struct {
	service   queueService
	responder responder
	logger    *slog.Logger
}

func NewQueueHandler(service queueService, logger *slog.Logger) *QueueHandler {
	return &QueueHandler{service: service, responder: newResponder(logger), logger: defaultLogger(logger)}
}

func (h *QueueHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "queue", operation, attrs...)
}

func (h *QueueHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	groupID, ok := GroupIDFromContext(r.Context())
	if !ok || strings.TrimSpace(groupID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidGroupID)
		return
	}

	// The body is optional; its flags cover content written in the same
	// request that the service's own reads might miss.
	var req initializeQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.InitializeQueue(r.Context(), groupID, application.EligibilityOverrides{
		NSFWEnabled:  req.EnableNSFW,
		HasMemorials: req.HasMemorials,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "initialize", "group_id", groupID).
		InfoContext(r.Context(), "queue initialization handled", "decision", string(result.Decision))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toQueueResultDTO(result))
}

func (h *QueueHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	groupID, ok := GroupIDFromContext(r.Context())
	if !ok || strings.TrimSpace(groupID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidGroupID)
		return
	}

	result, err := h.service.Regenerate(r.Context(), groupID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "regenerate", "group_id", groupID).
		InfoContext(r.Context(), "queue regeneration handled", "decision", string(result.Decision))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toQueueResultDTO(result))
}

type initializeQueueRequest struct {
	EnableNSFW   *bool `json:"enable_nsfw"`
	HasMemorials *bool `json:"has_memorials"`
}

type queueResultDTO struct {
	GroupID             string         `json:"group_id"`
	Decision            string         `json:"decision"`
	SlotsScheduled      int            `json:"slots_scheduled"`
	Dates               []string       `json:"dates,omitempty"`
	EligibleCategories  []string       `json:"eligible_categories"`
	CategoryCounts      map[string]int `json:"category_counts,omitempty"`
	Anomalies           []anomalyDTO   `json:"anomalies,omitempty"`
	IceBreakerCompleted bool           `json:"ice_breaker_completed,omitempty"`
}

type anomalyDTO struct {
	Kind     string `json:"kind"`
	Date     string `json:"date"`
	PromptID string `json:"prompt_id"`
	Category string `json:"category,omitempty"`
}

func toQueueResultDTO(result application.Result) queueResultDTO {
	dto := queueResultDTO{
		GroupID:             result.GroupID,
		Decision:            string(result.Decision),
		SlotsScheduled:      result.SlotsScheduled,
		EligibleCategories:  append([]string(nil), result.EligibleCategories...),
		CategoryCounts:      result.CategoryCounts,
		Anomalies:           toAnomalyDTOs(result.Anomalies),
		IceBreakerCompleted: result.IceBreakerCompleted,
	}
	for _, date := range result.Dates {
		dto.Dates = append(dto.Dates, date.Format(time.DateOnly))
	}
	return dto
}

func toAnomalyDTOs(anomalies []scheduler.Anomaly) []anomalyDTO {
	if len(anomalies) == 0 {
		return nil
	}

	out := make([]anomalyDTO, 0, len(anomalies))
	for _, anomaly := range anomalies {
		out = append(out, anomalyDTO{
			Kind:     string(anomaly.Kind),
			Date:     anomaly.Date.Format(time.DateOnly),
			PromptID: anomaly.PromptID,
			Category: anomaly.Category,
		})
	}
	return out
}
