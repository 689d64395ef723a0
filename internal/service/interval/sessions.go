package interval

import (
	"fmt"
	"time"

	"QuoteCache/internal/calendar"
	"QuoteCache/internal/domain/models"

	"cloud.google.com/go/civil"
)

type sessionEntry struct {
	s  models.Session
	ok bool
}

// sessions memoises SessionOn per date for the lifetime of one call.
type sessions struct {
	cal  *calendar.Calendar
	memo map[civil.Date]sessionEntry
}

func newSessions(cal *calendar.Calendar) *sessions {
	return &sessions{cal: cal, memo: make(map[civil.Date]sessionEntry)}
}

func (s *sessions) on(d civil.Date) (models.Session, bool) {
	if e, ok := s.memo[d]; ok {
		return e.s, e.ok
	}
	sess, ok := s.cal.SessionOn(d)
	s.memo[d] = sessionEntry{s: sess, ok: ok}
	return sess, ok
}

func (s *sessions) localDate(t time.Time) civil.Date {
	return civil.DateOf(t.In(s.cal.Location))
}

// current returns the session containing t.
func (s *sessions) current(t time.Time) (models.Session, bool) {
	sess, ok := s.on(s.localDate(t))
	if ok && sess.Contains(t) {
		return sess, true
	}
	return models.Session{}, false
}

// mostRecent returns the session containing t, or the latest one closed by t.
func (s *sessions) mostRecent(t time.Time) models.Session {
	d := s.localDate(t)
	for i := 0; i <= maxScanDays; i++ {
		sess, ok := s.on(d.AddDays(-i))
		if ok && !t.Before(sess.Open) {
			return sess
		}
	}
	panic(fmt.Sprintf("interval: %s has no session in the %d days before %s", s.cal.ID, maxScanDays, t))
}

// next returns the session containing t, or the earliest one opening after t.
func (s *sessions) next(t time.Time) models.Session {
	d := s.localDate(t)
	for i := 0; i <= maxScanDays; i++ {
		sess, ok := s.on(d.AddDays(i))
		if ok && t.Before(sess.Close) {
			return sess
		}
	}
	panic(fmt.Sprintf("interval: %s has no session in the %d days after %s", s.cal.ID, maxScanDays, t))
}

// firstOnOrAfter returns the first session dated d or later.
func (s *sessions) firstOnOrAfter(d civil.Date) models.Session {
	for i := 0; i <= maxScanDays; i++ {
		if sess, ok := s.on(d.AddDays(i)); ok {
			return sess
		}
	}
	panic(fmt.Sprintf("interval: %s has no session in the %d days from %s", s.cal.ID, maxScanDays, d))
}

// lastBefore returns the last session dated strictly before d.
func (s *sessions) lastBefore(d civil.Date) models.Session {
	for i := 1; i <= maxScanDays; i++ {
		if sess, ok := s.on(d.AddDays(-i)); ok {
			return sess
		}
	}
	panic(fmt.Sprintf("interval: %s has no session in the %d days before %s", s.cal.ID, maxScanDays, d))
}

// CurrentSession returns the session containing t, or false when the market
// is closed at t.
func (l *Locator) CurrentSession(ex string, t time.Time) (models.Session, bool) {
	return newSessions(l.reg.Lookup(ex)).current(t)
}

// MostRecentSession returns the session containing t or, when closed, the
// latest session whose close is at or before t.
func (l *Locator) MostRecentSession(ex string, t time.Time) models.Session {
	return newSessions(l.reg.Lookup(ex)).mostRecent(t)
}

// NextSession returns the session containing t or, when closed, the earliest
// session opening after t.
func (l *Locator) NextSession(ex string, t time.Time) models.Session {
	return newSessions(l.reg.Lookup(ex)).next(t)
}
