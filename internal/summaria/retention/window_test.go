package retention

import (
	"testing"
	"time"
)

func TestResolveWindow(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		horizon time.Duration
		want    time.Duration
	}{
		{name: "absent token defaults", token: "", horizon: DefaultHorizon, want: 180 * time.Minute},
		{name: "minutes", token: "45m", horizon: DefaultHorizon, want: 45 * time.Minute},
		{name: "hours", token: "2h", horizon: DefaultHorizon, want: 120 * time.Minute},
		{name: "hours clamped to horizon", token: "6h", horizon: DefaultHorizon, want: 180 * time.Minute},
		{name: "minutes clamped to horizon", token: "999999m", horizon: DefaultHorizon, want: 180 * time.Minute},
		{name: "all means horizon", token: "all", horizon: DefaultHorizon, want: 180 * time.Minute},
		{name: "all respects custom horizon", token: "all", horizon: 60 * time.Minute, want: 60 * time.Minute},
		{name: "zero clamped up", token: "0m", horizon: DefaultHorizon, want: time.Minute},
		{name: "negative clamped up", token: "-5m", horizon: DefaultHorizon, want: time.Minute},
		{name: "malformed prefix defaults", token: "abcm", horizon: DefaultHorizon, want: 180 * time.Minute},
		{name: "unknown suffix defaults", token: "5x", horizon: DefaultHorizon, want: 180 * time.Minute},
		{name: "bare word defaults", token: "abc", horizon: DefaultHorizon, want: 180 * time.Minute},
		{name: "uppercase accepted", token: "1H", horizon: DefaultHorizon, want: 60 * time.Minute},
		{name: "surrounding space trimmed", token: "  30m ", horizon: DefaultHorizon, want: 30 * time.Minute},
		{name: "zero horizon falls back to default", token: "all", horizon: 0, want: 180 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveWindow(tt.token, tt.horizon)
			if got != tt.want {
				t.Errorf("ResolveWindow(%q, %v) = %v, want %v", tt.token, tt.horizon, got, tt.want)
			}
		})
	}
}

func TestResolveWindowNeverExceedsHorizon(t *testing.T) {
	for _, token := range []string{"", "all", "1m", "180m", "181m", "3h", "4h", "junk"} {
		if got := ResolveWindow(token, 90*time.Minute); got > 90*time.Minute {
			t.Errorf("ResolveWindow(%q) = %v exceeds 90m horizon", token, got)
		}
	}
}
