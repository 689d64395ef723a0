package api

import (
	"errors"
	"time"

	models "QuoteCache/internal/domain/models"
	"QuoteCache/internal/service/freshness"
	"QuoteCache/internal/service/gaps"
	"QuoteCache/internal/service/interval"
	xhttp "QuoteCache/pkg/http"
	xlogger "QuoteCache/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

func init() {
	if err := xhttp.RegisterValidation("interval", func(fl validator.FieldLevel) bool {
		_, err := models.ParseInterval(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
}

// Defaults fill request fields the client left out.
type Defaults struct {
	MaxAge         func(models.Interval) time.Duration
	TriggerOnClose bool
	MergeThreshold int
}

// CalendarHandler exposes the interval engine read-only.
type CalendarHandler struct {
	logger   *xlogger.Logger
	loc      *interval.Locator
	fresh    *freshness.Evaluator
	gaps     *gaps.Identifier
	defaults Defaults
	now      func() time.Time
}

func NewCalendarHandler(logger *xlogger.Logger, loc *interval.Locator, fresh *freshness.Evaluator, gi *gaps.Identifier, d Defaults) *CalendarHandler {
	if d.MaxAge == nil {
		d.MaxAge = func(models.Interval) time.Duration { return time.Hour }
	}
	return &CalendarHandler{logger: logger, loc: loc, fresh: fresh, gaps: gi, defaults: d, now: time.Now}
}

func (h *CalendarHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/exchanges")
	g.GET("", h.Exchanges)
	g.GET("/:exchange", h.Exchange)
	g.GET("/:exchange/session", h.Session)
	g.GET("/:exchange/interval", h.Interval)
	g.GET("/:exchange/intervals", h.Intervals)
	g.POST("/:exchange/expired", h.Expired)
	g.POST("/:exchange/missing", h.Missing)
}

func (h *CalendarHandler) Exchanges(c echo.Context) error {
	ids := h.loc.Registry().IDs()
	return xhttp.ListResponse(c, ids, len(ids))
}

type exchangeResponse struct {
	ID             string            `json:"id"`
	Timezone       string            `json:"timezone"`
	Open           string            `json:"open"`
	Close          string            `json:"close"`
	Weekdays       []string          `json:"weekdays"`
	Lag            string            `json:"lag"`
	CloseAllowance string            `json:"close_allowance,omitempty"`
	Holidays       []string          `json:"holidays"`
	EarlyCloses    map[string]string `json:"early_closes,omitempty"`
}

// Exchange describes one registered calendar.
func (h *CalendarHandler) Exchange(c echo.Context) error {
	id := c.Param("exchange")
	cal, ok := h.loc.Registry().Get(id)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("exchange %q not registered", id))
	}
	out := exchangeResponse{
		ID:       cal.ID,
		Timezone: cal.Location.String(),
		Open:     cal.Open.String()[:5],
		Close:    cal.Close.String()[:5],
		Lag:      cal.Lag.String(),
		Holidays: []string{},
	}
	for wd, open := range cal.Weekdays {
		if open {
			out.Weekdays = append(out.Weekdays, time.Weekday(wd).String())
		}
	}
	if cal.CloseAllowance > 0 {
		out.CloseAllowance = cal.CloseAllowance.String()
	}
	for _, d := range cal.HolidayList() {
		out.Holidays = append(out.Holidays, d.String())
	}
	if len(cal.EarlyCloses) > 0 {
		out.EarlyCloses = make(map[string]string, len(cal.EarlyCloses))
		for d, t := range cal.EarlyCloses {
			out.EarlyCloses[d.String()] = t.String()[:5]
		}
	}
	return xhttp.SuccessResponse(c, out)
}

type sessionResponse struct {
	Found   bool            `json:"found"`
	Session *models.Session `json:"session,omitempty"`
}

func (h *CalendarHandler) Session(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.requireExchange(req.Exchange); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	t := h.instant(req.Exchange, req.At)

	var s models.Session
	found := true
	switch req.Mode {
	case "current":
		s, found = h.loc.CurrentSession(req.Exchange, t)
	case "recent":
		s = h.loc.MostRecentSession(req.Exchange, t)
	case "next":
		s = h.loc.NextSession(req.Exchange, t)
	}
	if !found {
		return xhttp.SuccessResponse(c, sessionResponse{})
	}
	return xhttp.SuccessResponse(c, sessionResponse{Found: true, Session: &s})
}

type intervalResponse struct {
	Found    bool                  `json:"found"`
	Interval *models.IntervalRange `json:"interval,omitempty"`
}

func (h *CalendarHandler) Interval(c echo.Context) error {
	req := &models.IntervalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.requireExchange(req.Exchange); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	iv, _ := models.ParseInterval(req.Interval)
	wm, _ := models.ParseWeekMode(req.WeekMode)
	opts := []interval.Option{interval.WithWeekMode(wm), interval.WithLateDaily(req.Late)}

	at := req.At
	if at.IsZero() {
		at = models.InstantMoment(h.now())
	}

	var r models.IntervalRange
	found := true
	switch req.Mode {
	case "current":
		r, found = h.loc.CurrentInterval(req.Exchange, at, iv, opts...)
	case "recent":
		r = h.loc.MostRecentInterval(req.Exchange, at, iv, opts...)
	case "next":
		r = h.loc.NextInterval(req.Exchange, at, iv, opts...)
	}
	if !found {
		return xhttp.SuccessResponse(c, intervalResponse{})
	}
	return xhttp.SuccessResponse(c, intervalResponse{Found: true, Interval: &r})
}

func (h *CalendarHandler) Intervals(c echo.Context) error {
	req := &models.IntervalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if verr := requireMoments(req.Start, req.End); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.requireExchange(req.Exchange); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	iv, _ := models.ParseInterval(req.Interval)
	wm, _ := models.ParseWeekMode(req.WeekMode)

	out, err := h.loc.EnumerateIntervals(req.Exchange, iv, req.Start, req.End, interval.WithWeekMode(wm))
	if err != nil {
		return h.fail(c, err)
	}
	return xhttp.ListResponse(c, out, len(out))
}

func (h *CalendarHandler) Expired(c echo.Context) error {
	req := &models.ExpiredRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.requireExchange(req.Exchange); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	iv, _ := models.ParseInterval(req.Interval)

	maxAge := h.defaults.MaxAge(iv)
	if req.MaxAge != "" {
		d, err := time.ParseDuration(req.MaxAge)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("max_age", err.Error()))
		}
		maxAge = d
	}
	var lag *time.Duration
	if req.Lag != "" {
		d, err := time.ParseDuration(req.Lag)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("lag", err.Error()))
		}
		lag = &d
	}
	trigger := h.defaults.TriggerOnClose
	if req.TriggerOnClose != nil {
		trigger = *req.TriggerOnClose
	}
	now := h.now()
	if req.Now != nil {
		now = *req.Now
	}

	qs := make([]freshness.ExpiryQuery, len(req.Points))
	var settled []models.Moment
	for i, p := range req.Points {
		if !p.Repaired {
			settled = append(settled, p.Start)
		}
		qs[i] = freshness.ExpiryQuery{
			Exchange:       req.Exchange,
			Interval:       iv,
			Start:          p.Start,
			FetchTime:      p.FetchTime,
			Repaired:       p.Repaired,
			MaxAge:         maxAge,
			TriggerOnClose: trigger,
			Lag:            lag,
			Now:            now,
		}
	}

	verdicts, err := h.fresh.IsExpiredBatch(qs)
	if err != nil {
		return h.fail(c, err)
	}
	lastData, err := h.fresh.LastDataInstantBatch(req.Exchange, settled, iv, lag)
	if err != nil {
		return h.fail(c, err)
	}

	out := make([]models.ExpiredResult, len(req.Points))
	for i, p := range req.Points {
		out[i] = models.ExpiredResult{Start: p.Start, Expired: verdicts[i]}
		if !p.Repaired {
			out[i].LastData = &lastData[0]
			lastData = lastData[1:]
		}
	}
	return xhttp.ListResponse(c, out, len(out))
}

func (h *CalendarHandler) Missing(c echo.Context) error {
	req := &models.MissingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if verr := requireMoments(req.Start, req.End); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.requireExchange(req.Exchange); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	iv, _ := models.ParseInterval(req.Interval)
	wm, _ := models.ParseWeekMode(req.WeekMode)
	threshold := h.defaults.MergeThreshold
	if req.MergeThreshold != nil {
		threshold = *req.MergeThreshold
	}

	out, err := h.gaps.MissingRanges(req.Exchange, req.Start, req.End, iv, req.Known, threshold, interval.WithWeekMode(wm))
	if err != nil {
		return h.fail(c, err)
	}
	if out == nil {
		out = []models.IntervalRange{}
	}
	return xhttp.ListResponse(c, out, len(out))
}

func (h *CalendarHandler) requireExchange(ex string) error {
	if _, ok := h.loc.Registry().Get(ex); !ok {
		return xhttp.NotFoundErrorf("exchange %q not registered", ex)
	}
	return nil
}

// instant resolves an optional moment to an instant. Dates mean local midnight.
func (h *CalendarHandler) instant(ex string, m models.Moment) time.Time {
	if m.IsZero() {
		return h.now()
	}
	return m.InstantIn(h.loc.Registry().Lookup(ex).Location)
}

func requireMoments(start, end models.Moment) []xhttp.ValidationError {
	var errs []xhttp.ValidationError
	for _, f := range []struct {
		name string
		m    models.Moment
	}{{"start", start}, {"end", end}} {
		if f.m.IsZero() {
			errs = append(errs, xhttp.ValidationError{
				Code:    "ERR_REQUIRED",
				Field:   f.name,
				Message: f.name + " is required",
			})
		}
	}
	return errs
}

func (h *CalendarHandler) fail(c echo.Context, err error) error {
	appErr := engineError(err)
	if appErr.Status >= 500 {
		h.logger.Error("engine error", xlogger.String("path", c.Path()), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// engineError maps engine sentinels to client errors.
func engineError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, interval.ErrInvalidRange):
		return xhttp.BadRequestError("start", err.Error()).WithError(err)
	case errors.Is(err, gaps.ErrNoIntervalsInRange),
		errors.Is(err, freshness.ErrStartOutsideInterval):
		return xhttp.UnprocessableError("ERR_NO_INTERVAL", err.Error()).WithError(err)
	case errors.Is(err, freshness.ErrInvalidMaxAge):
		return xhttp.BadRequestError("max_age", err.Error()).WithError(err)
	}
	return xhttp.InternalError("engine failure").WithError(err)
}
