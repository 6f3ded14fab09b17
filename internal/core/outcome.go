package core

import "time"

// Outcome is the result of executing one transaction end-to-end:
// substitution, dispatch, checks, correlation extraction and think time.
type Outcome struct {
	Transaction    string
	Method         string
	URL            string
	Success        bool
	Reason         string // human-readable failure reason, empty on success
	StatusCode     int
	ExpectedStatus int // 0 when no status check was declared
	Duration       time.Duration
	BodySnippet    string // truncated response body for failure reporting
	BytesSent      int64
	BytesRecv      int64
}

// Event converts the outcome into a collector event.
func (o Outcome) Event(userID, scenario string) Event {
	return Event{
		UserID:      userID,
		Timestamp:   time.Now(),
		Scenario:    scenario,
		Transaction: o.Transaction,
		Duration:    o.Duration,
		Success:     o.Success,
		Error:       o.Reason,
		StatusCode:  o.StatusCode,
		BytesSent:   o.BytesSent,
		BytesRecv:   o.BytesRecv,
	}
}
