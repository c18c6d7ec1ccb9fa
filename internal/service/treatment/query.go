package treatment

import (
	"fmt"
	"sort"
	"time"

	"github.com/jwalitptl/dental-api/internal/model"
)

// RevenuePolicy decides which treatments count toward the current month.
type RevenuePolicy string

const (
	// PolicyMonth compares only the month number, so the same month of any
	// year counts.
	PolicyMonth RevenuePolicy = "month"
	// PolicyYearMonth compares year and month.
	PolicyYearMonth RevenuePolicy = "year_month"
)

func ParseRevenuePolicy(s string) (RevenuePolicy, error) {
	switch RevenuePolicy(s) {
	case "", PolicyMonth:
		return PolicyMonth, nil
	case PolicyYearMonth:
		return PolicyYearMonth, nil
	}
	return "", fmt.Errorf("unknown revenue policy %q", s)
}

// MonthlyRevenue sums the cost of treatments dated in now's month, ignoring
// status.
func MonthlyRevenue(treatments []model.Treatment, now time.Time, policy RevenuePolicy) float64 {
	var sum float64
	for _, t := range treatments {
		if t.Date.IsZero() || t.Date.Month() != now.Month() {
			continue
		}
		if policy == PolicyYearMonth && t.Date.Year() != now.Year() {
			continue
		}
		sum += t.Cost
	}
	return sum
}

func Summarize(treatments []model.Treatment) model.TreatmentSummary {
	var s model.TreatmentSummary
	for _, t := range treatments {
		switch t.Status {
		case model.TreatmentStatusCompleted:
			s.CompletedCount++
			s.Revenue += t.Cost
		case model.TreatmentStatusPending:
			s.PendingCount++
			s.PotentialRevenue += t.Cost
		}
	}
	return s
}

// Recent returns up to n treatments, latest date first.
func Recent(treatments []model.Treatment, n int) []model.Treatment {
	sorted := append([]model.Treatment(nil), treatments...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date.Time)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func ForPatient(treatments []model.Treatment, patientID string) []model.Treatment {
	out := make([]model.Treatment, 0)
	if patientID == "" {
		return out
	}
	for _, t := range treatments {
		if t.PatientID == patientID {
			out = append(out, t)
		}
	}
	return out
}
