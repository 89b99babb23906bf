// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rts-portal/internal/common/config"
	"rts-portal/internal/common/database"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/forms"
	"rts-portal/internal/models"
)

//go:embed schema.sql
var schemaSQL string

const (
	defaultWriteTimeout = 120 * time.Second
	defaultReadTimeout  = 30 * time.Second
)

const (
	nextSequenceQuery = `INSERT INTO application_sequences (application_type, last_value)
VALUES ($1, 1)
ON CONFLICT (application_type) DO UPDATE SET last_value = application_sequences.last_value + 1
RETURNING last_value`

	insertApplicationQuery = `INSERT INTO applications (
    tracking_code, application_type, form_name, status, priority, assigned_to, remarks, is_active,
    title, first_name, middle_name, last_name, mobile, email,
    street, area, city, district, pin_code, landmark, latitude, longitude
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
RETURNING id, created_at`

	insertPayloadQuery = `INSERT INTO application_payloads (application_id, application_type, payload)
VALUES ($1, $2, $3)`

	insertDocumentQuery = `INSERT INTO application_documents (
    application_id, field, path, original_name, content_type, size_bytes, checksum
) VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at`

	selectApplication = `SELECT a.id, a.tracking_code, a.application_type, a.form_name, a.status, a.priority,
    COALESCE(a.assigned_to, ''), COALESCE(a.remarks, ''), a.is_active,
    a.created_at, a.updated_at, a.resolved_at,
    COALESCE(a.updated_by, ''), COALESCE(a.deleted_by, ''),
    COALESCE(a.title, ''), COALESCE(a.first_name, ''), COALESCE(a.middle_name, ''), COALESCE(a.last_name, ''),
    COALESCE(a.mobile, ''), COALESCE(a.email, ''),
    COALESCE(a.street, ''), COALESCE(a.area, ''), COALESCE(a.city, ''), COALESCE(a.district, ''),
    COALESCE(a.pin_code, ''), COALESCE(a.landmark, ''), a.latitude, a.longitude,
    COALESCE(p.payload, '{}'::jsonb)
FROM applications a
LEFT JOIN application_payloads p ON p.application_id = a.id`

	getByTrackingCodeQuery = selectApplication + `
WHERE a.tracking_code = $1 AND a.is_active = TRUE`

	findForTrackingQuery = selectApplication + `
WHERE a.tracking_code = $1 AND a.is_active = TRUE AND ($2 = '' OR a.mobile = $2)
ORDER BY a.created_at DESC
LIMIT 1`

	listQuery = selectApplication + `
WHERE a.application_type = $1 AND a.is_active = TRUE
ORDER BY a.created_at DESC, a.id DESC
LIMIT $2 OFFSET $3`

	countQuery = `SELECT COUNT(*) FROM applications WHERE application_type = $1 AND is_active = TRUE`

	documentsQuery = `SELECT field, path, original_name, COALESCE(content_type, ''), size_bytes, checksum, created_at
FROM application_documents
WHERE application_id = $1
ORDER BY id`

	updateFlagQuery = `UPDATE applications
SET status = $1, updated_at = NOW(), updated_by = $2
WHERE tracking_code = $3 AND is_active = TRUE
RETURNING id`

	softDeleteQuery = `UPDATE applications
SET is_active = FALSE, deleted_by = $1, updated_at = NOW()
WHERE tracking_code = $2 AND is_active = TRUE`
)

// Options bounds how long a single store operation may take.
type Options struct {
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

// OptionsFromConfig reads the per-operation timeouts, falling back to 120s writes and 30s reads.
func OptionsFromConfig(cfg config.PostgresConfig) Options {
	opts := Options{
		WriteTimeout: config.GetDuration(cfg.WriteTimeout),
		ReadTimeout:  config.GetDuration(cfg.ReadTimeout),
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	return opts
}

// PostgresStore is the Store backed by the applications, application_payloads
// and application_documents tables.
type PostgresStore struct {
	db       *sql.DB
	registry *forms.Registry
	opts     Options
	logger   logger.Logger
}

func NewPostgresStore(db *sql.DB, registry *forms.Registry, opts Options, log logger.Logger) *PostgresStore {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	return &PostgresStore{
		db:       db,
		registry: registry,
		opts:     opts,
		logger:   log.WithFields(map[string]interface{}{"component": "application-store"}),
	}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: migrate: %v", ErrDatabase, err)
	}
	s.logger.Info("Application schema applied", nil)
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, app *models.Application) (*models.Application, error) {
	if app == nil {
		return nil, fmt.Errorf("%w: application is nil", ErrInvalid)
	}
	def, ok := s.registry.ByType(app.Type)
	if !ok {
		return nil, fmt.Errorf("%w: unknown application type %q", ErrInvalid, app.Type)
	}

	payload, err := normalizePayload(app.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrInvalid, err)
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrInvalid, err)
	}

	out := *app
	out.Payload = payload
	out.IsActive = true
	if out.Status == "" {
		out.Status = models.StatusSubmitted
	}
	if out.Priority == "" {
		out.Priority = def.Priority
	}
	if out.FormName == "" {
		out.FormName = def.FormName
	}
	out.Documents = make([]models.Document, len(app.Documents))
	copy(out.Documents, app.Documents)

	ctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var seq int64
		if err := tx.QueryRowContext(ctx, nextSequenceQuery, string(out.Type)).Scan(&seq); err != nil {
			return fmt.Errorf("next sequence: %v", err)
		}
		out.TrackingCode = forms.FormatTrackingCode(def.Prefix, seq)

		err := tx.QueryRowContext(ctx, insertApplicationQuery,
			out.TrackingCode, string(out.Type), out.FormName, out.Status, out.Priority,
			nullString(out.AssignedTo), nullString(out.Remarks), out.IsActive,
			nullString(out.Applicant.Title), nullString(out.Applicant.FirstName),
			nullString(out.Applicant.MiddleName), nullString(out.Applicant.LastName),
			nullString(out.Applicant.Mobile), nullString(out.Applicant.Email),
			nullString(out.Address.Street), nullString(out.Address.Area),
			nullString(out.Address.City), nullString(out.Address.District),
			nullString(out.Address.PinCode), nullString(out.Address.Landmark),
			nullFloat(out.Address.Latitude), nullFloat(out.Address.Longitude),
		).Scan(&out.ID, &out.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert application: %v", err)
		}

		if _, err := tx.ExecContext(ctx, insertPayloadQuery, out.ID, string(out.Type), payloadJSON); err != nil {
			return fmt.Errorf("insert payload: %v", err)
		}

		return insertDocuments(ctx, tx, out.ID, out.Documents)
	})
	if err != nil {
		s.logger.Error("Application insert failed", map[string]interface{}{
			"applicationType": out.Type,
			"error":           err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	s.logger.Info("Application inserted", map[string]interface{}{
		"applicationType": out.Type,
		"trackingCode":    out.TrackingCode,
		"documents":       len(out.Documents),
	})
	return &out, nil
}

func insertDocuments(ctx context.Context, tx *sql.Tx, applicationID int64, docs []models.Document) error {
	for i := range docs {
		d := &docs[i]
		err := tx.QueryRowContext(ctx, insertDocumentQuery,
			applicationID, d.Field, d.Path, d.OriginalName, nullString(d.ContentType), d.Size, d.Checksum,
		).Scan(&d.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert document %s: %v", d.Field, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetByTrackingCode(ctx context.Context, code string) (*models.Application, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ReadTimeout)
	defer cancel()

	return s.getOne(ctx, getByTrackingCodeQuery, code)
}

func (s *PostgresStore) FindForTracking(ctx context.Context, code, mobile string) (*models.Application, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ReadTimeout)
	defer cancel()

	return s.getOne(ctx, findForTrackingQuery, code, mobile)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, args ...interface{}) (*models.Application, error) {
	app, err := scanApplication(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select application: %v", ErrDatabase, err)
	}

	docs, err := s.documents(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	app.Documents = docs
	return app, nil
}

func (s *PostgresStore) documents(ctx context.Context, applicationID int64) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, documentsQuery, applicationID)
	if err != nil {
		return nil, fmt.Errorf("%w: select documents: %v", ErrDatabase, err)
	}
	defer rows.Close()

	docs := make([]models.Document, 0)
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.Field, &d.Path, &d.OriginalName, &d.ContentType, &d.Size, &d.Checksum, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", ErrDatabase, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate documents: %v", ErrDatabase, err)
	}
	return docs, nil
}

// List returns one page of active applications, newest first. Documents are
// not loaded for list items. Filters in q are echoed back in the page only.
func (s *PostgresStore) List(ctx context.Context, t models.ApplicationType, q models.ListQuery) (*models.ApplicationPage, error) {
	q = q.Normalize()

	ctx, cancel := context.WithTimeout(ctx, s.opts.ReadTimeout)
	defer cancel()

	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, string(t)).Scan(&total); err != nil {
		return nil, fmt.Errorf("%w: count applications: %v", ErrDatabase, err)
	}

	rows, err := s.db.QueryContext(ctx, listQuery, string(t), q.PageSize, q.Offset())
	if err != nil {
		return nil, fmt.Errorf("%w: list applications: %v", ErrDatabase, err)
	}
	defer rows.Close()

	items := make([]*models.Application, 0, q.PageSize)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan application: %v", ErrDatabase, err)
		}
		app.Documents = []models.Document{}
		items = append(items, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate applications: %v", ErrDatabase, err)
	}

	return &models.ApplicationPage{
		Items:      items,
		TotalCount: total,
		TotalPages: int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
		Query:      q,
	}, nil
}

func (s *PostgresStore) Count(ctx context.Context, t models.ApplicationType) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ReadTimeout)
	defer cancel()

	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, string(t)).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: count applications: %v", ErrDatabase, err)
	}
	return total, nil
}

func (s *PostgresStore) UpdateFlag(ctx context.Context, code, updatedBy string) error {
	return s.UpdateFlagWithDocuments(ctx, code, updatedBy, nil)
}

func (s *PostgresStore) UpdateFlagWithDocuments(ctx context.Context, code, updatedBy string, docs []models.Document) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, updateFlagQuery, models.StatusUpdated, nullString(updatedBy), code).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: update flag: %v", ErrDatabase, err)
		}
		if err := insertDocuments(ctx, tx, id, docs); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrDatabase) {
			err = fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		return err
	}

	s.logger.Info("Application flagged as updated", map[string]interface{}{
		"trackingCode": code,
		"documents":    len(docs),
	})
	return nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, code, deletedBy string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, softDeleteQuery, nullString(deletedBy), code)
	if err != nil {
		return fmt.Errorf("%w: soft delete: %v", ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: soft delete: %v", ErrDatabase, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Info("Application soft deleted", map[string]interface{}{
		"trackingCode": code,
		"deletedBy":    deletedBy,
	})
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app                 models.Application
		appType             string
		updatedAt, resolved sql.NullTime
		lat, lon            sql.NullFloat64
		payload             []byte
	)
	err := row.Scan(
		&app.ID, &app.TrackingCode, &appType, &app.FormName, &app.Status, &app.Priority,
		&app.AssignedTo, &app.Remarks, &app.IsActive,
		&app.CreatedAt, &updatedAt, &resolved,
		&app.UpdatedBy, &app.DeletedBy,
		&app.Applicant.Title, &app.Applicant.FirstName, &app.Applicant.MiddleName, &app.Applicant.LastName,
		&app.Applicant.Mobile, &app.Applicant.Email,
		&app.Address.Street, &app.Address.Area, &app.Address.City, &app.Address.District,
		&app.Address.PinCode, &app.Address.Landmark, &lat, &lon,
		&payload,
	)
	if err != nil {
		return nil, err
	}

	app.Type = models.ApplicationType(appType)
	app.UpdatedAt = timePtr(updatedAt)
	app.ResolvedAt = timePtr(resolved)
	app.Address.Latitude = floatPtr(lat)
	app.Address.Longitude = floatPtr(lon)

	app.Payload = map[string]interface{}{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &app.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %v", err)
		}
	}
	return &app, nil
}

// normalizePayload gives the payload the shape it has after a JSONB round trip.
func normalizePayload(p map[string]interface{}) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if len(p) == 0 {
		return out, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
