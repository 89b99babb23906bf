// internal/models/application.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// ApplicationType discriminates the payload carried by an Application.
type ApplicationType string

const (
	TypeBirthCertificate    ApplicationType = "BIRTH_CERTIFICATE"
	TypeDeathCertificate    ApplicationType = "DEATH_CERTIFICATE"
	TypeMarriageCertificate ApplicationType = "MARRIAGE_CERTIFICATE"
	TypePothole             ApplicationType = "POTHOLE"
	TypeGutter              ApplicationType = "GUT"
	TypeOFCPermission       ApplicationType = "OFC_PERMISSION"
	TypeTreeTrimming        ApplicationType = "TREE_TRIMMING"
	TypeTreeFelling         ApplicationType = "TREE_FELLING"
	TypeDepositRefund       ApplicationType = "DEPOSIT_REFUND"
)

// Workflow statuses. Status is free text in storage; these are the values the portal knows.
const (
	StatusSubmitted   = "Submitted"
	StatusInProgress  = "In Progress"
	StatusUnderReview = "Under Review"
	StatusApproved    = "Approved"
	StatusRejected    = "Rejected"
	StatusCompleted   = "Completed"
	StatusUpdated     = "Updated"
)

const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

type Applicant struct {
	Title      string `json:"title"`
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName,omitempty"`
	LastName   string `json:"lastName"`
	Mobile     string `json:"mobile"`
	Email      string `json:"email,omitempty"`
}

type Address struct {
	Street    string   `json:"street,omitempty"`
	Area      string   `json:"area,omitempty"`
	City      string   `json:"city,omitempty"`
	District  string   `json:"district,omitempty"`
	PinCode   string   `json:"pinCode,omitempty"`
	Landmark  string   `json:"landmark,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Application is the common envelope plus its type-specific payload.
type Application struct {
	ID           int64           `json:"-"`
	TrackingCode string          `json:"applicationId"`
	Type         ApplicationType `json:"applicationType"`
	FormName     string          `json:"formName"`
	Status       string          `json:"status"`
	Priority     string          `json:"priority"`
	AssignedTo   string          `json:"assignedTo,omitempty"`
	Remarks      string          `json:"remarks,omitempty"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdDate"`
	UpdatedAt    *time.Time      `json:"updatedDate,omitempty"`
	ResolvedAt   *time.Time      `json:"resolvedDate,omitempty"`
	UpdatedBy    string          `json:"updatedBy,omitempty"`
	DeletedBy    string          `json:"deletedBy,omitempty"`

	Applicant Applicant              `json:"applicant"`
	Address   Address                `json:"address"`
	Payload   map[string]interface{} `json:"payload"`
	Documents []Document             `json:"documents"`
}

// FullName joins title and names, collapsing the gaps left by empty parts.
func (a *Application) FullName() string {
	return strings.Join(strings.Fields(strings.Join([]string{
		a.Applicant.Title,
		a.Applicant.FirstName,
		a.Applicant.MiddleName,
		a.Applicant.LastName,
	}, " ")), " ")
}

// FullAddress renders "Street, Area, City - PinCode" skipping empty parts.
func (a *Application) FullAddress() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.Address.Street, a.Address.Area, a.Address.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	out := strings.Join(parts, ", ")
	if a.Address.PinCode != "" {
		if out == "" {
			return a.Address.PinCode
		}
		out = fmt.Sprintf("%s - %s", out, a.Address.PinCode)
	}
	return out
}

// Document is an uploaded file referenced by an application.
type Document struct {
	Field        string    `json:"field"`
	Path         string    `json:"path"`
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"contentType,omitempty"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ListQuery carries paging plus the filters list endpoints accept.
// Status, Priority and SearchText are echoed back but not applied.
type ListQuery struct {
	PageNumber int    `json:"pageNumber"`
	PageSize   int    `json:"pageSize"`
	Status     string `json:"status,omitempty"`
	Priority   string `json:"priority,omitempty"`
	SearchText string `json:"searchText,omitempty"`
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize clamps paging values into range.
func (q ListQuery) Normalize() ListQuery {
	if q.PageNumber < 1 {
		q.PageNumber = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

func (q ListQuery) Offset() int {
	return (q.PageNumber - 1) * q.PageSize
}

type ApplicationPage struct {
	Items      []*Application `json:"items"`
	TotalCount int64          `json:"totalCount"`
	TotalPages int            `json:"totalPages"`
	Query      ListQuery      `json:"query"`
}
