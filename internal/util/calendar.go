package util

import "time"

// TradingCalendar answers trading-day and session-hours questions for the
// Taiwan Stock Exchange. Regular session is 09:00-13:30 Taipei time, Monday
// through Friday. Exchange holidays are not tracked; weekends only.
type TradingCalendar struct {
	loc *time.Location
}

// NewTradingCalendar creates a calendar pinned to Asia/Taipei. When tzdata
// is unavailable a fixed UTC+8 zone is used instead.
func NewTradingCalendar() *TradingCalendar {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	return &TradingCalendar{loc: loc}
}

// Location returns the calendar's time zone.
func (tc *TradingCalendar) Location() *time.Location {
	return tc.loc
}

// IsTradingDay reports whether t falls on a weekday in Taipei.
func (tc *TradingCalendar) IsTradingDay(t time.Time) bool {
	wd := t.In(tc.loc).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// IsMarketOpen reports whether the regular session is open at time t.
func (tc *TradingCalendar) IsMarketOpen(t time.Time) bool {
	if !tc.IsTradingDay(t) {
		return false
	}
	lt := t.In(tc.loc)
	minutes := lt.Hour()*60 + lt.Minute()
	return minutes >= 9*60 && minutes < 13*60+30
}

// NextOpen returns the next session open at or after t.
func (tc *TradingCalendar) NextOpen(t time.Time) time.Time {
	lt := t.In(tc.loc)
	open := time.Date(lt.Year(), lt.Month(), lt.Day(), 9, 0, 0, 0, tc.loc)
	for open.Before(lt) || !tc.IsTradingDay(open) {
		open = open.AddDate(0, 0, 1)
	}
	return open
}

// NextClose returns the next session close at or after t.
func (tc *TradingCalendar) NextClose(t time.Time) time.Time {
	lt := t.In(tc.loc)
	closeAt := time.Date(lt.Year(), lt.Month(), lt.Day(), 13, 30, 0, 0, tc.loc)
	for !tc.IsTradingDay(closeAt) || closeAt.Before(lt) {
		closeAt = closeAt.AddDate(0, 0, 1)
	}
	return closeAt
}

// PrevTradingDay returns the most recent trading day strictly before t,
// truncated to midnight Taipei time.
func (tc *TradingCalendar) PrevTradingDay(t time.Time) time.Time {
	lt := t.In(tc.loc)
	day := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, tc.loc)
	for {
		day = day.AddDate(0, 0, -1)
		if tc.IsTradingDay(day) {
			return day
		}
	}
}
