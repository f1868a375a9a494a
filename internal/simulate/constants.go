package simulate

import "time"

// Generation bounds per participant line.
const (
	maxKills   = 15
	maxDeaths  = 10
	maxAssists = 8
)

// Runner configuration constants.
const (
	progressInterval   = time.Second
	settlePollInterval = 500 * time.Millisecond
	directoryPerm      = 0750
	percentMultiplier  = 100
)
