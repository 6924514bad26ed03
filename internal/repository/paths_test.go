package repository

import (
	"testing"
	"time"
)

func TestArchivePaths(t *testing.T) {
	testCases := []struct {
		date      time.Time
		wantYear  string
		wantMonth string
		wantDay   string
	}{
		{time.Date(2025, 2, 3, 10, 30, 0, 0, time.UTC), "2025", "2025-02", "2025-02-03"},
		{time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC), "2025", "2025-12", "2025-12-31"},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024", "2024-01", "2024-01-01"},
	}

	for _, tc := range testCases {
		if got := YearPath(tc.date); got != tc.wantYear {
			t.Errorf("YearPath(%v) = %q, want %q", tc.date, got, tc.wantYear)
		}
		if got := MonthPath(tc.date); got != tc.wantMonth {
			t.Errorf("MonthPath(%v) = %q, want %q", tc.date, got, tc.wantMonth)
		}
		if got := DayPath(tc.date); got != tc.wantDay {
			t.Errorf("DayPath(%v) = %q, want %q", tc.date, got, tc.wantDay)
		}
	}
}

func TestDocIDs(t *testing.T) {
	date := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)

	if got := bucketDocID("user-1", date); got != "user-1/2025-02-03" {
		t.Errorf("bucketDocID = %q", got)
	}
	if got := archiveDocID("user-1", date, "q-9"); got != "user-1/2025-02-03/q-9" {
		t.Errorf("archiveDocID = %q", got)
	}
	if got := activeDocID("user-1", "q-9"); got != "user-1/q-9" {
		t.Errorf("activeDocID = %q", got)
	}
}
