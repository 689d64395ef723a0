package calendar

import (
	"time"

	"cloud.google.com/go/civil"
)

type exchangeDefaults struct {
	tz        string
	open      civil.Time
	close     civil.Time
	weekdays  []time.Weekday
	lag       time.Duration
	allowance time.Duration
}

var (
	monFri = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	sunThu = []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday}
)

func hm(h, m int) civil.Time { return civil.Time{Hour: h, Minute: m} }

// Regular hours and vendor lag for the vendor's exchange codes. Holidays are
// static data and come from the calendar file.
var knownExchanges = map[string]exchangeDefaults{
	// USA
	"NYQ": {tz: "America/New_York", open: hm(9, 30), close: hm(16, 0), weekdays: monFri},
	"ASE": {tz: "America/New_York", open: hm(9, 30), close: hm(16, 0), weekdays: monFri},
	"PCX": {tz: "America/New_York", open: hm(9, 30), close: hm(16, 0), weekdays: monFri},
	"BTS": {tz: "America/New_York", open: hm(9, 30), close: hm(16, 0), weekdays: monFri},
	"PNK": {tz: "America/New_York", open: hm(9, 30), close: hm(16, 0), weekdays: monFri, lag: 15 * time.Minute},
	"NCM": {tz: "America/New_York", open: hm(9, 30), close: hm(16, 0), weekdays: monFri},
	"NGM": {tz: "America/New_York", open: hm(9, 30), close: hm(16, 0), weekdays: monFri},
	"NMS": {tz: "America/New_York", open: hm(9, 30), close: hm(16, 0), weekdays: monFri},
	// Canada
	"TOR": {tz: "America/Toronto", open: hm(9, 30), close: hm(16, 0), weekdays: monFri},
	"VAN": {tz: "America/Toronto", open: hm(9, 30), close: hm(16, 0), weekdays: monFri},
	"CNQ": {tz: "America/Toronto", open: hm(9, 30), close: hm(16, 0), weekdays: monFri},
	// Europe
	"LSE": {tz: "Europe/London", open: hm(8, 0), close: hm(16, 30), weekdays: monFri, lag: 20 * time.Minute},
	"IOB": {tz: "Europe/London", open: hm(8, 0), close: hm(16, 30), weekdays: monFri, lag: 20 * time.Minute},
	"AMS": {tz: "Europe/Amsterdam", open: hm(9, 0), close: hm(17, 30), weekdays: monFri, lag: 15 * time.Minute},
	"BRU": {tz: "Europe/Brussels", open: hm(9, 0), close: hm(17, 30), weekdays: monFri, lag: 15 * time.Minute},
	"PAR": {tz: "Europe/Paris", open: hm(9, 0), close: hm(17, 30), weekdays: monFri, lag: 15 * time.Minute},
	"GER": {tz: "Europe/Berlin", open: hm(9, 0), close: hm(17, 30), weekdays: monFri, lag: 15 * time.Minute},
	"FRA": {tz: "Europe/Berlin", open: hm(8, 0), close: hm(22, 0), weekdays: monFri, lag: 15 * time.Minute},
	"MIL": {tz: "Europe/Rome", open: hm(9, 0), close: hm(17, 30), weekdays: monFri, lag: 20 * time.Minute},
	"MCE": {tz: "Europe/Madrid", open: hm(9, 0), close: hm(17, 30), weekdays: monFri, lag: 15 * time.Minute},
	"EBS": {tz: "Europe/Zurich", open: hm(9, 0), close: hm(17, 30), weekdays: monFri, lag: 30 * time.Minute},
	"VIE": {tz: "Europe/Vienna", open: hm(9, 0), close: hm(17, 30), weekdays: monFri, lag: 15 * time.Minute},
	"STO": {tz: "Europe/Stockholm", open: hm(9, 0), close: hm(17, 30), weekdays: monFri},
	"HEL": {tz: "Europe/Helsinki", open: hm(10, 0), close: hm(18, 30), weekdays: monFri},
	"CPH": {tz: "Europe/Copenhagen", open: hm(9, 0), close: hm(17, 0), weekdays: monFri},
	"OSL": {tz: "Europe/Oslo", open: hm(9, 0), close: hm(16, 20), weekdays: monFri, lag: 15 * time.Minute},
	"ISE": {tz: "Europe/Dublin", open: hm(8, 0), close: hm(16, 30), weekdays: monFri, lag: 15 * time.Minute},
	"WSE": {tz: "Europe/Warsaw", open: hm(9, 0), close: hm(17, 0), weekdays: monFri, lag: 15 * time.Minute},
	// Other
	"JNB": {tz: "Africa/Johannesburg", open: hm(9, 0), close: hm(17, 0), weekdays: monFri, lag: 15 * time.Minute, allowance: 15 * time.Minute},
	"TLV": {tz: "Asia/Jerusalem", open: hm(9, 59), close: hm(17, 14), weekdays: sunThu, lag: 20 * time.Minute, allowance: 11 * time.Minute},
	"SAO": {tz: "America/Sao_Paulo", open: hm(10, 0), close: hm(17, 0), weekdays: monFri, lag: 15 * time.Minute},
	"MEX": {tz: "America/Mexico_City", open: hm(8, 30), close: hm(15, 0), weekdays: monFri, lag: 20 * time.Minute},
	"JPX": {tz: "Asia/Tokyo", open: hm(9, 0), close: hm(15, 30), weekdays: monFri, lag: 20 * time.Minute},
	"TAI": {tz: "Asia/Taipei", open: hm(9, 0), close: hm(13, 30), weekdays: monFri, lag: 20 * time.Minute},
	"KSC": {tz: "Asia/Seoul", open: hm(9, 0), close: hm(15, 30), weekdays: monFri, lag: 20 * time.Minute},
	"SES": {tz: "Asia/Singapore", open: hm(9, 0), close: hm(17, 0), weekdays: monFri, lag: 20 * time.Minute},
	"HKG": {tz: "Asia/Hong_Kong", open: hm(9, 30), close: hm(16, 0), weekdays: monFri, lag: 15 * time.Minute},
	"ASX": {tz: "Australia/Sydney", open: hm(10, 0), close: hm(16, 0), weekdays: monFri, lag: 20 * time.Minute, allowance: 11 * time.Minute},
	"NZE": {tz: "Pacific/Auckland", open: hm(10, 0), close: hm(16, 45), weekdays: monFri, lag: 20 * time.Minute},
}

// KnownTimezone returns the default timezone name of a vendor exchange code.
func KnownTimezone(id string) (string, bool) {
	d, ok := knownExchanges[id]
	return d.tz, ok
}

// KnownLag returns the default vendor lag of an exchange code.
func KnownLag(id string) (time.Duration, bool) {
	d, ok := knownExchanges[id]
	return d.lag, ok
}
