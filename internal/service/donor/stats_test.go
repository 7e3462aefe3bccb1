package donor

import (
	"testing"
	"time"

	"github.com/ashwinyue/donor-ai/internal/model"
)

func donation(cents int64, daysAgo int, now time.Time) *model.Donation {
	return &model.Donation{
		AmountCent: cents,
		DonatedAt:  now.AddDate(0, 0, -daysAgo),
	}
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		donations     []*model.Donation
		wantCount     int
		wantTotal     int64
		wantAverage   int64
		wantRecurring bool
	}{
		{
			name:      "no donations",
			donations: nil,
		},
		{
			name:        "single gift",
			donations:   []*model.Donation{donation(5000, 30, now)},
			wantCount:   1,
			wantTotal:   5000,
			wantAverage: 5000,
		},
		{
			name: "two recent gifts not recurring",
			donations: []*model.Donation{
				donation(1000, 30, now),
				donation(2000, 90, now),
			},
			wantCount:   2,
			wantTotal:   3000,
			wantAverage: 1500,
		},
		{
			name: "three gifts within a year is recurring",
			donations: []*model.Donation{
				donation(1000, 30, now),
				donation(1000, 120, now),
				donation(1000, 300, now),
			},
			wantCount:     3,
			wantTotal:     3000,
			wantAverage:   1000,
			wantRecurring: true,
		},
		{
			name: "old gifts do not count toward recurring",
			donations: []*model.Donation{
				donation(1000, 30, now),
				donation(1000, 400, now),
				donation(1000, 500, now),
				donation(1000, 600, now),
			},
			wantCount:   4,
			wantTotal:   4000,
			wantAverage: 1000,
		},
		{
			name: "average truncates",
			donations: []*model.Donation{
				donation(1000, 10, now),
				donation(1001, 20, now),
			},
			wantCount:   2,
			wantTotal:   2001,
			wantAverage: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := computeStats(tt.donations, now)

			if stats.DonationCount != tt.wantCount {
				t.Errorf("DonationCount = %d, want %d", stats.DonationCount, tt.wantCount)
			}
			if stats.TotalCents != tt.wantTotal {
				t.Errorf("TotalCents = %d, want %d", stats.TotalCents, tt.wantTotal)
			}
			if stats.AverageCents != tt.wantAverage {
				t.Errorf("AverageCents = %d, want %d", stats.AverageCents, tt.wantAverage)
			}
			if stats.IsRecurring != tt.wantRecurring {
				t.Errorf("IsRecurring = %v, want %v", stats.IsRecurring, tt.wantRecurring)
			}
		})
	}
}

func TestComputeStatsLastGift(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	donations := []*model.Donation{
		donation(1000, 300, now),
		donation(2000, 10, now),
		donation(3000, 100, now),
	}

	stats := computeStats(donations, now)
	want := now.AddDate(0, 0, -10)
	if !stats.LastGiftAt.Equal(want) {
		t.Errorf("LastGiftAt = %v, want %v", stats.LastGiftAt, want)
	}
}
