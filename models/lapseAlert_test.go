package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifyRisk_TierBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	cases := []struct {
		name     string
		daysOut  int
		expected RiskLevel
	}{
		{"due today", 0, RiskLevelCritical},
		{"due in 1 day", 1, RiskLevelCritical},
		{"due in 7 days", 7, RiskLevelCritical},
		{"due in 8 days", 8, RiskLevelHigh},
		{"due in 15 days", 15, RiskLevelHigh},
		{"due in 16 days", 16, RiskLevelMedium},
		{"due in 30 days", 30, RiskLevelMedium},
		{"due in 31 days", 31, RiskLevelLow},
		{"overdue 3 days", -3, RiskLevelCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			days, level := ClassifyRisk(now.AddDate(0, 0, tc.daysOut), now)
			require.Equal(t, tc.daysOut, days)
			require.Equal(t, tc.expected, level)
		})
	}
}

func TestClassifyRisk_IgnoresTimeOfDay(t *testing.T) {
	// A due date later the same calendar day still counts as 0 days out.
	now := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	due := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)

	days, level := ClassifyRisk(due, now)
	require.Equal(t, 0, days)
	require.Equal(t, RiskLevelCritical, level)
}

func TestRiskLevelSortRank_CriticalFirst(t *testing.T) {
	require.Less(t, RiskLevelCritical.SortRank(), RiskLevelHigh.SortRank())
	require.Less(t, RiskLevelHigh.SortRank(), RiskLevelMedium.SortRank())
	require.Less(t, RiskLevelMedium.SortRank(), RiskLevelLow.SortRank())
}
