package utils

import "time"

// ISOLayout matches the millisecond UTC timestamps the web client produces.
const ISOLayout = "2006-01-02T15:04:05.000Z"

func ISOTimestamp(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// NowISO is ISOTimestamp(time.Now()).
func NowISO() string {
	return ISOTimestamp(time.Now())
}
