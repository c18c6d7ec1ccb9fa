package patient

import (
	"sort"
	"strings"

	"github.com/jwalitptl/dental-api/internal/model"
)

// Top returns up to n patients with the most visits. Ties keep input order.
func Top(patients []model.Patient, n int) []model.Patient {
	sorted := append([]model.Patient(nil), patients...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Visits > sorted[j].Visits
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Search matches the name or email case-insensitively and the contact
// number as typed.
func Search(patients []model.Patient, term string) []model.Patient {
	if term == "" {
		return patients
	}
	lower := strings.ToLower(term)
	out := make([]model.Patient, 0, len(patients))
	for _, p := range patients {
		if strings.Contains(strings.ToLower(p.Name), lower) ||
			strings.Contains(p.Contact, term) ||
			(p.Email != "" && strings.Contains(strings.ToLower(p.Email), lower)) {
			out = append(out, p)
		}
	}
	return out
}

// Paginate returns the requested page. Pages past the end are empty.
func Paginate(patients []model.Patient, p model.Pagination) []model.Patient {
	p = p.Normalize()
	start := (p.Page - 1) * p.PageSize
	if start >= len(patients) {
		return []model.Patient{}
	}
	end := start + p.PageSize
	if end > len(patients) {
		end = len(patients)
	}
	return patients[start:end]
}
