package quotas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextResetDate(t *testing.T) {
	cases := []struct {
		name    string
		current time.Time
		today   time.Time
		want    time.Time
	}{
		{"due today", date(2026, 10, 16), date(2026, 10, 16), date(2026, 11, 16)},
		{"several months behind", date(2026, 6, 5), date(2026, 10, 16), date(2026, 11, 5)},
		{"clamped to short month", date(2026, 1, 31), date(2026, 2, 1), date(2026, 2, 28)},
		{"anchor day kept after clamp", date(2026, 1, 31), date(2026, 3, 15), date(2026, 3, 31)},
		{"year rollover", date(2026, 12, 20), date(2026, 12, 20), date(2027, 1, 20)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, nextResetDate(tc.current, tc.today))
		})
	}
}

func TestTruncateToDate(t *testing.T) {
	loc := time.FixedZone("x", 3*3600)
	in := time.Date(2026, 10, 17, 1, 30, 0, 0, loc)
	require.Equal(t, date(2026, 10, 16), truncateToDate(in))
}
