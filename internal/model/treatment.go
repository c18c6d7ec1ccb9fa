package model

type TreatmentStatus string

const (
	TreatmentStatusCompleted TreatmentStatus = "completed"
	TreatmentStatusPending   TreatmentStatus = "pending"
)

// Treatment is read-only; it is only ever seeded and aggregated.
type Treatment struct {
	ID        string          `json:"id"`
	PatientID string          `json:"patientId"`
	Name      string          `json:"name"`
	Status    TreatmentStatus `json:"status"`
	Cost      float64         `json:"cost"`
	Date      Date            `json:"date"`
}

type TreatmentSummary struct {
	CompletedCount   int     `json:"completed_count"`
	Revenue          float64 `json:"revenue"`
	PendingCount     int     `json:"pending_count"`
	PotentialRevenue float64 `json:"potential_revenue"`
}
