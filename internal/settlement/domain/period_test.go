package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePreviousPeriod(t *testing.T) {
	cases := []struct {
		in   Period
		want Period
	}{
		{"2025-01", "2024-12"},
		{"2025-02", "2025-01"},
		{"2025-10", "2025-09"},
		{"2025-12", "2025-11"},
		{"0001-01", "0000-12"},
	}
	for _, tc := range cases {
		t.Run(string(tc.in), func(t *testing.T) {
			assert.Equal(t, tc.want, ResolvePreviousPeriod(tc.in))
		})
	}
}

func TestPeriodNextIsInverseOfPrevious(t *testing.T) {
	p := Period("2024-11")
	for i := 0; i < 30; i++ {
		assert.Equal(t, p, p.Next().Previous())
		assert.Equal(t, p, p.Previous().Next())
		p = p.Next()
	}
}

func TestParsePeriod(t *testing.T) {
	t.Run("accepts canonical form", func(t *testing.T) {
		p, err := ParsePeriod("2025-03")
		require.NoError(t, err)
		assert.Equal(t, Period("2025-03"), p)
		assert.Equal(t, 2025, p.Year())
		assert.Equal(t, time.March, p.Month())
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, raw := range []string{"", "2025-3", "2025-13", "2025-00", "25-03", "2025/03", "2025-03-01", "abcd-ef"} {
			_, err := ParsePeriod(raw)
			assert.ErrorIs(t, err, ErrInvalidPeriod, raw)
		}
	})
}

func TestPeriodsBetween(t *testing.T) {
	got := PeriodsBetween("2024-11", "2025-02")
	assert.Equal(t, []Period{"2024-11", "2024-12", "2025-01", "2025-02"}, got)
	assert.Nil(t, PeriodsBetween("2025-02", "2025-01"))
	assert.Equal(t, []Period{"2025-05"}, PeriodsBetween("2025-05", "2025-05"))
}

func TestPeriodOf(t *testing.T) {
	assert.Equal(t, Period("2026-10"), PeriodOf(time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)))
}
