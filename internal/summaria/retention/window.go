package retention

import (
	"strconv"
	"strings"
	"time"
)

// DefaultHorizon is the retention ceiling: nothing older than this is kept,
// and no lookback window may exceed it.
const DefaultHorizon = 180 * time.Minute

// minWindow is the smallest lookback a user can request.
const minWindow = time.Minute

// ResolveWindow turns a user-supplied duration token into a concrete lookback
// window bounded by [1 minute, horizon].
//
//	""      → 180 minutes (default)
//	"2h"    → 120 minutes
//	"45m"   → 45 minutes
//	"all"   → horizon (the store never holds anything older anyway)
//
// Malformed tokens fall back to the default; ResolveWindow never fails.
func ResolveWindow(token string, horizon time.Duration) time.Duration {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	w := DefaultHorizon
	switch token = strings.ToLower(strings.TrimSpace(token)); {
	case token == "":
		// keep default
	case token == "all":
		w = horizon
	case strings.HasSuffix(token, "h"):
		if n, err := strconv.Atoi(strings.TrimSuffix(token, "h")); err == nil {
			w = time.Duration(n) * time.Hour
		}
	case strings.HasSuffix(token, "m"):
		if n, err := strconv.Atoi(strings.TrimSuffix(token, "m")); err == nil {
			w = time.Duration(n) * time.Minute
		}
	}

	if w < minWindow {
		w = minWindow
	}
	if w > horizon {
		w = horizon
	}
	return w
}
