package utils

import "strings"

// clickHouseIntervals are the suffixes of ClickHouse's toStartOf* functions
// that timeline queries may bucket by.
var clickHouseIntervals = []string{"Minute", "Hour", "Day", "Week", "Month", "Quarter", "Year"}

// NormalizeInterval maps a case-insensitive bucket name ("day", "HOUR") to its
// ClickHouse spelling. The result is safe to splice into a query.
func NormalizeInterval(interval string) (string, bool) {
	for _, name := range clickHouseIntervals {
		if strings.EqualFold(interval, name) {
			return name, true
		}
	}
	return "", false
}
