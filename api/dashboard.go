package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garnizeh/rentops/internal/dashboard"
)

type DashboardService interface {
	MonthlyRecognizedRevenue(ctx context.Context, now time.Time) (decimal.Decimal, error)
	WeeklyJobTrend(ctx context.Context, now time.Time) (dashboard.Trend, error)
}

type DashboardHandler struct {
	dash DashboardService
	now  func() time.Time
}

func NewDashboardHandler(dash DashboardService) *DashboardHandler {
	return &DashboardHandler{dash: dash, now: time.Now}
}

type revenueResponse struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// referenceTime reads ?date=YYYY-MM-DD and ?tz=<IANA name>. Without a date the
// handler clock is used; the date is interpreted at noon so the week and month
// it falls in do not depend on DST edges.
func (h *DashboardHandler) referenceTime(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	q := r.URL.Query()
	loc := time.Local
	if tz := q.Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown tz")
			return time.Time{}, false
		}
		loc = l
	}
	raw := q.Get("date")
	if raw == "" {
		return h.now().In(loc), true
	}
	d, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return d.Add(12 * time.Hour), true
}

func (h *DashboardHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	now, ok := h.referenceTime(w, r)
	if !ok {
		return
	}
	amount, err := h.dash.MonthlyRecognizedRevenue(r.Context(), now)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, revenueResponse{Month: now.Format("2006-01"), Amount: amount}, http.StatusOK)
}

func (h *DashboardHandler) Trend(w http.ResponseWriter, r *http.Request) {
	now, ok := h.referenceTime(w, r)
	if !ok {
		return
	}
	trend, err := h.dash.WeeklyJobTrend(r.Context(), now)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, trend, http.StatusOK)
}
