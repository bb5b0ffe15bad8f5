package models

import "time"

// CardVelocity is one fraud-detection result: a card and how many
// transactions it produced within the scanned window
type CardVelocity struct {
	CardToken        string
	CardID           int64
	TransactionCount int
}

// FraudAlert is the best-effort monitoring record appended for a flagged
// card. Its absence never fails a detection run.
type FraudAlert struct {
	DetectedAt       time.Time
	WindowStart      time.Time
	Reason           string
	CardID           int64
	TransactionCount int
}
