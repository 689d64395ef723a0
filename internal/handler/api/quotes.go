package api

import (
	"errors"
	"net/http"

	models "QuoteCache/internal/domain/models"
	"QuoteCache/internal/usecase"
	"QuoteCache/pkg/cache"
	xhttp "QuoteCache/pkg/http"
	xlogger "QuoteCache/pkg/logger"

	"github.com/labstack/echo/v4"
)

// QuotesHandler plans and records vendor fetches for cached series.
type QuotesHandler struct {
	logger *xlogger.Logger
	quotes *usecase.QuoteCache
	cal    *CalendarHandler
}

func NewQuotesHandler(logger *xlogger.Logger, quotes *usecase.QuoteCache, cal *CalendarHandler) *QuotesHandler {
	return &QuotesHandler{logger: logger, quotes: quotes, cal: cal}
}

func (h *QuotesHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/exchanges/:exchange/quotes/:symbol")
	g.POST("/plan", h.Plan)
	g.POST("/merge", h.Merge)
	g.DELETE("", h.Invalidate)
}

func (h *QuotesHandler) Plan(c echo.Context) error {
	req := &models.PlanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if verr := requireMoments(req.Start, req.End); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.cal.requireExchange(req.Exchange); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	iv, _ := models.ParseInterval(req.Interval)

	plan, err := h.quotes.Plan(c.Request().Context(), usecase.PlanParams{
		Exchange: req.Exchange,
		Symbol:   req.Symbol,
		Interval: iv,
		Start:    req.Start,
		End:      req.End,
	})
	if err != nil {
		return h.cal.fail(c, err)
	}
	return xhttp.SuccessResponse(c, plan)
}

type mergeResponse struct {
	Stored int `json:"stored"`
}

func (h *QuotesHandler) Merge(c echo.Context) error {
	req := &models.MergeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.cal.requireExchange(req.Exchange); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	iv, _ := models.ParseInterval(req.Interval)
	fetched := h.cal.now()
	if req.FetchTime != nil {
		fetched = *req.FetchTime
	}

	n, err := h.quotes.Merge(c.Request().Context(), usecase.MergeParams{
		Exchange:  req.Exchange,
		Symbol:    req.Symbol,
		Interval:  iv,
		Candles:   req.Candles,
		FetchTime: fetched,
		Repaired:  req.Repaired,
	})
	if errors.Is(err, cache.ErrLocked) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_LOCKED", "", "series is being updated", http.StatusConflict).WithError(err))
	}
	if err != nil {
		h.logger.Error("merge failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("merge failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, mergeResponse{Stored: n})
}

func (h *QuotesHandler) Invalidate(c echo.Context) error {
	req := &models.InvalidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	iv, _ := models.ParseInterval(req.Interval)
	if err := h.quotes.Invalidate(c.Request().Context(), req.Exchange, req.Symbol, iv); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("invalidate failed").WithError(err))
	}
	return c.NoContent(http.StatusNoContent)
}
