package model

import (
	"strings"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusFollowUp  AppointmentStatus = "follow-up"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusCompleted,
		AppointmentStatusCancelled, AppointmentStatusFollowUp:
		return true
	}
	return false
}

type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypePDF      FileType = "pdf"
	FileTypeDocument FileType = "document"
)

// ClassifyFile maps a MIME type onto the attachment kind shown in the UI.
func ClassifyFile(mimeType string) FileType {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return FileTypeImage
	case mimeType == "application/pdf":
		return FileTypePDF
	default:
		return FileTypeDocument
	}
}

// File is attachment metadata only; the content is not stored.
type File struct {
	Name string   `json:"name"`
	URL  string   `json:"url"`
	Type FileType `json:"type"`
	Size int64    `json:"size,omitempty"`
}

type Appointment struct {
	ID                  string            `json:"id"`
	PatientID           string            `json:"patientId"`
	PatientName         string            `json:"patientName"`
	Title               string            `json:"title"`
	Description         string            `json:"description"`
	Comments            string            `json:"comments,omitempty"`
	AppointmentDate     DateTime          `json:"appointmentDate"`
	Cost                float64           `json:"cost"`
	Treatment           string            `json:"treatment"`
	Status              AppointmentStatus `json:"status"`
	NextAppointmentDate *DateTime         `json:"nextAppointmentDate,omitempty"`
	Files               []File            `json:"files,omitempty"`
	CreatedAt           DateTime          `json:"createdAt"`
}

type CreateAppointmentRequest struct {
	PatientID           string            `json:"patientId" validate:"required"`
	PatientName         string            `json:"patientName" validate:"max=200"`
	Title               string            `json:"title" validate:"required,max=200"`
	Description         string            `json:"description" validate:"max=2000"`
	Comments            string            `json:"comments" validate:"max=2000"`
	AppointmentDate     DateTime          `json:"appointmentDate" validate:"required"`
	Cost                float64           `json:"cost" validate:"min=0"`
	Treatment           string            `json:"treatment" validate:"max=200"`
	Status              AppointmentStatus `json:"status" validate:"omitempty,oneof=scheduled completed cancelled follow-up"`
	NextAppointmentDate *DateTime         `json:"nextAppointmentDate"`
	Files               []File            `json:"files" validate:"dive"`
}

// AppointmentPatch lists the mutable appointment fields. Nil means unchanged;
// an empty nextAppointmentDate clears the follow-up.
type AppointmentPatch struct {
	PatientID           *string            `json:"patientId" validate:"omitempty,min=1"`
	PatientName         *string            `json:"patientName" validate:"omitempty,max=200"`
	Title               *string            `json:"title" validate:"omitempty,min=1,max=200"`
	Description         *string            `json:"description" validate:"omitempty,max=2000"`
	Comments            *string            `json:"comments" validate:"omitempty,max=2000"`
	AppointmentDate     *DateTime          `json:"appointmentDate"`
	Cost                *float64           `json:"cost" validate:"omitempty,min=0"`
	Treatment           *string            `json:"treatment" validate:"omitempty,max=200"`
	Status              *AppointmentStatus `json:"status" validate:"omitempty,oneof=scheduled completed cancelled follow-up"`
	NextAppointmentDate *DateTime          `json:"nextAppointmentDate"`
	Files               *[]File            `json:"files"`
}

func (p AppointmentPatch) Apply(a *Appointment) {
	if p.PatientID != nil {
		a.PatientID = *p.PatientID
	}
	if p.PatientName != nil {
		a.PatientName = *p.PatientName
	}
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Comments != nil {
		a.Comments = *p.Comments
	}
	if p.AppointmentDate != nil {
		a.AppointmentDate = *p.AppointmentDate
	}
	if p.Cost != nil {
		a.Cost = *p.Cost
	}
	if p.Treatment != nil {
		a.Treatment = *p.Treatment
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.NextAppointmentDate != nil {
		a.NextAppointmentDate = OptionalDateTime(*p.NextAppointmentDate)
	}
	if p.Files != nil {
		a.Files = append([]File(nil), (*p.Files)...)
	}
}

// AttachFileRequest describes an upload whose content stays with the client.
type AttachFileRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	URL      string `json:"url" validate:"required"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size" validate:"min=0"`
}
