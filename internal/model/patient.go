package model

type Patient struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DOB        string `json:"dob"`
	Contact    string `json:"contact"`
	Email      string `json:"email,omitempty"`
	HealthInfo string `json:"healthInfo"`
	Visits     int    `json:"visits"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

type CreatePatientRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	DOB        string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Contact    string `json:"contact" validate:"required,max=50"`
	Email      string `json:"email" validate:"omitempty,email"`
	HealthInfo string `json:"healthInfo" validate:"max=2000"`
	Visits     int    `json:"visits" validate:"min=0"`
}

// PatientPatch lists the mutable patient fields. Nil means unchanged.
type PatientPatch struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=200"`
	DOB        *string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Contact    *string `json:"contact" validate:"omitempty,max=50"`
	Email      *string `json:"email" validate:"omitempty,email"`
	HealthInfo *string `json:"healthInfo" validate:"omitempty,max=2000"`
	Visits     *int    `json:"visits" validate:"omitempty,min=0"`
}

func (p PatientPatch) Apply(patient *Patient) {
	if p.Name != nil {
		patient.Name = *p.Name
	}
	if p.DOB != nil {
		patient.DOB = *p.DOB
	}
	if p.Contact != nil {
		patient.Contact = *p.Contact
	}
	if p.Email != nil {
		patient.Email = *p.Email
	}
	if p.HealthInfo != nil {
		patient.HealthInfo = *p.HealthInfo
	}
	if p.Visits != nil {
		patient.Visits = *p.Visits
	}
}
