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
)

type dailyService interface {
	RunDaily(ctx context.Context, date time.Time) (application.DailySummary, error)
}

type DailyHandler struct {
	service   dailyService
	responder responder
	logger    *slog.Logger
}

func NewDailyHandler(service dailyService, logger *slog.Logger) *DailyHandler {
	return &DailyHandler{service: service, responder: newResponder(logger), logger: defaultLogger(logger)}
}

func (h *DailyHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "daily", operation, attrs...)
}

func (h *DailyHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req dailyRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	var date time.Time
	if value := strings.TrimSpace(req.Date); value != "" {
		parsed, err := time.Parse(time.DateOnly, value)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest,
				errors.New("date must use the 2006-01-02 format"))
			return
		}
		date = parsed
	}

	summary, err := h.service.RunDaily(r.Context(), date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "run", "date", summary.Date.Format(time.DateOnly)).
		InfoContext(r.Context(), "daily pass handled",
			"groups", summary.Groups, "failures", summary.Failures)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDailySummaryDTO(summary))
}

type dailyRunRequest struct {
	Date string `json:"date"`
}

type dailySummaryDTO struct {
	Date     string            `json:"date"`
	Groups   int               `json:"groups"`
	Failures int               `json:"failures"`
	Outcomes []dailyOutcomeDTO `json:"outcomes"`
}

type dailyOutcomeDTO struct {
	GroupID         string `json:"group_id"`
	PromptID        string `json:"prompt_id,omitempty"`
	Question        string `json:"question,omitempty"`
	Scheduled       bool   `json:"scheduled"`
	BirthdaysPinned int    `json:"birthdays_pinned,omitempty"`
}

func toDailySummaryDTO(summary application.DailySummary) dailySummaryDTO {
	dto := dailySummaryDTO{
		Date:     summary.Date.Format(time.DateOnly),
		Groups:   summary.Groups,
		Failures: summary.Failures,
		Outcomes: make([]dailyOutcomeDTO, 0, len(summary.Outcomes)),
	}
	for _, outcome := range summary.Outcomes {
		dto.Outcomes = append(dto.Outcomes, dailyOutcomeDTO{
			GroupID:         outcome.GroupID,
			PromptID:        outcome.PromptID,
			Question:        outcome.Question,
			Scheduled:       outcome.Scheduled,
			BirthdaysPinned: outcome.BirthdaysPinned,
		})
	}
	return dto
}
