package audit

import "time"

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func parseTime(raw string) (time.Time, error) {
	return time.Parse(timeLayout, raw)
}
