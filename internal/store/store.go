// internal/store/store.go
package store

import (
	"context"
	"errors"

	"rts-portal/internal/models"
)

var (
	ErrNotFound = errors.New("APPLICATION_NOT_FOUND")
	ErrDatabase = errors.New("DB_OPERATION_ERROR")
	ErrInvalid  = errors.New("INVALID_APPLICATION")
)

// Store persists applications. Reads only return active rows.
type Store interface {
	// Insert assigns the id and tracking code and writes the envelope,
	// payload and documents in one transaction.
	Insert(ctx context.Context, app *models.Application) (*models.Application, error)
	GetByTrackingCode(ctx context.Context, code string) (*models.Application, error)
	// FindForTracking matches the code, and the mobile when it is not empty.
	FindForTracking(ctx context.Context, code, mobile string) (*models.Application, error)
	List(ctx context.Context, t models.ApplicationType, q models.ListQuery) (*models.ApplicationPage, error)
	Count(ctx context.Context, t models.ApplicationType) (int64, error)
	// UpdateFlag marks the application "Updated". Field changes are not applied.
	UpdateFlag(ctx context.Context, code, updatedBy string) error
	UpdateFlagWithDocuments(ctx context.Context, code, updatedBy string, docs []models.Document) error
	SoftDelete(ctx context.Context, code, deletedBy string) error
}
