package util

import "time"

// TradingDaysAgo returns the start of the trading day n trading days before
// t, skipping weekends. n = 0 returns the start of t's own day (or the
// preceding Friday when t falls on a weekend). Exchange holidays are not
// modelled; a holiday simply contributes an empty window.
func TradingDaysAgo(t time.Time, n int) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	for i := 0; i < n; i++ {
		d = d.AddDate(0, 0, -1)
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, -1)
		}
	}
	return d
}

// IsRegularSession reports whether t falls inside the regular US session
// (9:30–16:00) in t's own location. The caller is responsible for passing a
// time already shifted to exchange time.
func IsRegularSession(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	mins := t.Hour()*60 + t.Minute()
	return mins >= 9*60+30 && mins < 16*60
}
