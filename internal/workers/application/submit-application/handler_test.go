// internal/workers/application/submit-application/handler_test.go
package submitapplication

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"rts-portal/internal/common/config"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/common/storage"
	"rts-portal/internal/forms"
	"rts-portal/internal/models"
	"rts-portal/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test doubles
// ==========================

// memoryStore keeps applications in a map keyed by tracking code.
type memoryStore struct {
	mu       sync.Mutex
	apps     map[string]*models.Application
	seq      map[models.ApplicationType]int64
	inserts  int
	updates  []string
	deletes  []string
	err      error
	registry *forms.Registry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		apps:     make(map[string]*models.Application),
		seq:      make(map[models.ApplicationType]int64),
		registry: forms.Default(),
	}
}

func (m *memoryStore) Insert(_ context.Context, app *models.Application) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.err != nil {
		return nil, m.err
	}
	def, ok := m.registry.ByType(app.Type)
	if !ok {
		return nil, store.ErrInvalid
	}
	m.seq[app.Type]++
	saved := *app
	saved.ID = int64(len(m.apps) + 1)
	saved.TrackingCode = forms.FormatTrackingCode(def.Prefix, m.seq[app.Type])
	saved.CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.apps[saved.TrackingCode] = &saved
	return &saved, nil
}

func (m *memoryStore) GetByTrackingCode(_ context.Context, code string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[code]
	if !ok || !app.IsActive {
		return nil, store.ErrNotFound
	}
	cp := *app
	return &cp, nil
}

func (m *memoryStore) FindForTracking(ctx context.Context, code, mobile string) (*models.Application, error) {
	app, err := m.GetByTrackingCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if mobile != "" && app.Applicant.Mobile != mobile {
		return nil, store.ErrNotFound
	}
	return app, nil
}

func (m *memoryStore) List(_ context.Context, t models.ApplicationType, q models.ListQuery) (*models.ApplicationPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := &models.ApplicationPage{Query: q.Normalize()}
	for _, app := range m.apps {
		if app.Type == t && app.IsActive {
			page.Items = append(page.Items, app)
		}
	}
	page.TotalCount = int64(len(page.Items))
	return page, nil
}

func (m *memoryStore) Count(ctx context.Context, t models.ApplicationType) (int64, error) {
	page, err := m.List(ctx, t, models.ListQuery{})
	if err != nil {
		return 0, err
	}
	return page.TotalCount, nil
}

func (m *memoryStore) UpdateFlag(ctx context.Context, code, updatedBy string) error {
	return m.UpdateFlagWithDocuments(ctx, code, updatedBy, nil)
}

func (m *memoryStore) UpdateFlagWithDocuments(_ context.Context, code, updatedBy string, docs []models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	app, ok := m.apps[code]
	if !ok || !app.IsActive {
		return store.ErrNotFound
	}
	app.Status = models.StatusUpdated
	app.UpdatedBy = updatedBy
	app.Documents = append(app.Documents, docs...)
	m.updates = append(m.updates, code)
	return nil
}

func (m *memoryStore) SoftDelete(_ context.Context, code, deletedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[code]
	if !ok || !app.IsActive {
		return store.ErrNotFound
	}
	app.IsActive = false
	app.DeletedBy = deletedBy
	m.deletes = append(m.deletes, deletedBy)
	return nil
}

type recordingDispatcher struct {
	events []models.SubmissionEvent
	err    error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event models.SubmissionEvent) error {
	d.events = append(d.events, event)
	return d.err
}

// ==========================
// Test helpers
// ==========================

type fixture struct {
	handler    *Handler
	store      store.Store
	uploadRoot string
	stagingDir string
}

func newFixture(t *testing.T, st store.Store, dispatcher Dispatcher) *fixture {
	uploadRoot, stagingDir := t.TempDir(), t.TempDir()
	files, err := storage.NewFileStore(config.StorageConfig{
		UploadRoot: uploadRoot,
		StagingDir: stagingDir,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)

	deps := Dependencies{Forms: forms.Default(), Store: st, Files: files}
	if dispatcher != nil {
		deps.Dispatcher = dispatcher
	}
	h := NewHandler(&Config{Timeout: 5 * time.Second, ProcessID: DefaultProcessID}, deps, logger.NewTestLogger(t))
	return &fixture{handler: h, store: st, uploadRoot: uploadRoot, stagingDir: stagingDir}
}

// sqlmockStore is a real PostgresStore over sqlmock. Any query without an
// expectation fails, so an untouched mock proves zero database calls.
func sqlmockStore(t *testing.T) (store.Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewPostgresStore(db, forms.Default(), store.Options{}, logger.NewTestLogger(t)), mock
}

func countFiles(t *testing.T, dirs ...string) int {
	n := 0
	for _, dir := range dirs {
		err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				n++
			}
			return nil
		})
		require.NoError(t, err)
	}
	return n
}

func citizenFields() map[string]interface{} {
	return map[string]interface{}{
		"Title":     "Mr",
		"FirstName": "Ravi",
		"LastName":  "Patil",
		"Mobile":    "9876543210",
		"Email":     "ravi@example.com",
		"Street":    "MG Road",
		"Area":      "Kothrud",
		"City":      "Pune",
		"PinCode":   "411038",
		"Landmark":  "Near bus stop",
	}
}

func potholeFields() map[string]interface{} {
	f := citizenFields()
	f["RoadName"] = "MG Road"
	f["PotholeSize"] = "Large"
	f["TrafficImpact"] = "High"
	f["RoadType"] = "Main"
	f["PotholeCount"] = "5"
	return f
}

func treeTrimmingFields(terms bool) map[string]interface{} {
	f := citizenFields()
	f["ReasonForTrimming"] = "Branches touching power lines"
	f["TreeType"] = "Neem"
	f["OwnerType"] = "Private"
	f["TypeOfApplicant"] = "Owner"
	f["TreeCount"] = "2"
	for i := 1; i <= 6; i++ {
		f[fmt.Sprintf("TermsCondition%d", i)] = fmt.Sprint(terms)
	}
	return f
}

func treeFellingFields(trees int) map[string]interface{} {
	f := citizenFields()
	f["ReasonForFelling"] = "Dead tree"
	f["TreeType"] = "Gulmohar"
	f["OwnerType"] = "Private"
	f["TypeOfApplicant"] = "Owner"
	f["NoOfTreeFelling"] = fmt.Sprint(trees)
	for i := 1; i <= 4; i++ {
		f[fmt.Sprintf("TermsCondition%d", i)] = "true"
	}
	return f
}

func upload(name string, content []byte) *storage.File {
	return &storage.File{
		Name:        name,
		ContentType: "image/jpeg",
		Size:        int64(len(content)),
		Content:     bytes.NewReader(content),
	}
}

// ==========================
// Execute
// ==========================

func TestExecute_PotholeIssuesSequentialTrackingCode(t *testing.T) {
	st, mock := sqlmockStore(t)
	f := newFixture(t, st, nil)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO application_sequences`).
		WithArgs("POTHOLE").
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(int64(1)))
	mock.ExpectQuery(`INSERT INTO applications`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), created))
	mock.ExpectExec(`INSERT INTO application_payloads`).
		WithArgs(int64(1), "POTHOLE", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := f.handler.Execute(context.Background(), &Input{
		ApplicationType: models.TypePothole,
		Fields:          potholeFields(),
	})

	require.NoError(t, err)
	require.True(t, out.Success)
	assert.Equal(t, "खड्डे भरणे तक्रार यशस्वीरित्या सबमिट झाली!", out.Message)
	assert.Equal(t, models.ResultStatusSuccess, out.Status)

	// canonical sequential code, never the legacy timestamped one
	assert.Regexp(t, regexp.MustCompile(`^RPF\d{5}$`), out.ApplicationID)
	assert.NotRegexp(t, regexp.MustCompile(`^POT\d{8}-\d{6}-\d{3}$`), out.ApplicationID)
	assert.Equal(t, "RPF00001", out.ApplicationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_TreeTrimmingRejectsEveryUnacceptedTerm(t *testing.T) {
	st, mock := sqlmockStore(t)
	f := newFixture(t, st, nil)

	out, err := f.handler.Execute(context.Background(), &Input{
		ApplicationType: models.TypeTreeTrimming,
		Fields:          treeTrimmingFields(false),
		Files: map[string][]*storage.File{
			"TreePhotographFile": {upload("tree.jpg", []byte("jpeg bytes"))},
		},
	})

	require.Error(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "VALIDATION_FAILED", out.ErrorCode)
	assert.Equal(t, "कृपया खालील त्रुटी दुरुस्त करा:", out.Message)

	require.Len(t, out.Errors, 6)
	seen := make(map[string]bool)
	for _, e := range out.Errors {
		assert.Equal(t, "You must accept all terms and conditions", e.Message)
		seen[e.Field] = true
	}
	for i := 1; i <= 6; i++ {
		assert.True(t, seen[fmt.Sprintf("TermsCondition%d", i)])
	}

	assert.Zero(t, countFiles(t, f.uploadRoot, f.stagingDir), "no file may be written")
	assert.NoError(t, mock.ExpectationsWereMet(), "no database call may be made")
}

func TestExecute_MissingRequiredFieldSkipsInsert(t *testing.T) {
	st, mock := sqlmockStore(t)
	f := newFixture(t, st, nil)

	fields := potholeFields()
	delete(fields, "RoadName")

	out, err := f.handler.Execute(context.Background(), &Input{
		ApplicationType: models.TypePothole,
		Fields:          fields,
	})

	require.Error(t, err)
	assert.False(t, out.Success)
	require.NotEmpty(t, out.Errors)
	assert.Equal(t, "RoadName", out.Errors[0].Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_RejectsBadUploadsBeforeWriting(t *testing.T) {
	tests := []struct {
		name    string
		file    *storage.File
		message string
	}{
		{
			name:    "too large",
			file:    &storage.File{Name: "photo.jpg", Size: 11 << 20, Content: bytes.NewReader([]byte("x"))},
			message: "File size must not exceed 10 MB",
		},
		{
			name:    "extension not allowed",
			file:    upload("script.exe", []byte("MZ")),
			message: "Only .pdf, .doc, .docx, .jpg, .jpeg, .png, .bmp files are allowed",
		},
		{
			name:    "empty",
			file:    &storage.File{Name: "photo.jpg"},
			message: "Uploaded file is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newMemoryStore()
			f := newFixture(t, st, nil)

			out, err := f.handler.Execute(context.Background(), &Input{
				ApplicationType: models.TypePothole,
				Fields:          potholeFields(),
				Files:           map[string][]*storage.File{"DocumentFile": {tt.file}},
			})

			require.Error(t, err)
			assert.Equal(t, "FILE_VALIDATION_FAILED", out.ErrorCode)
			require.Len(t, out.Errors, 1)
			assert.Equal(t, models.FieldError{Field: "DocumentFile", Message: tt.message}, out.Errors[0])
			assert.Zero(t, st.inserts)
			assert.Zero(t, countFiles(t, f.uploadRoot, f.stagingDir))
		})
	}
}

func TestExecute_PromotesDocumentsAfterCommit(t *testing.T) {
	st := newMemoryStore()
	f := newFixture(t, st, nil)

	out, err := f.handler.Execute(context.Background(), &Input{
		ApplicationType: models.TypePothole,
		Fields:          potholeFields(),
		Files:           map[string][]*storage.File{"DocumentFile": {upload("road photo.jpg", []byte("jpeg bytes"))}},
	})
	require.NoError(t, err)
	require.True(t, out.Success)

	saved, err := st.GetByTrackingCode(context.Background(), out.ApplicationID)
	require.NoError(t, err)
	require.Len(t, saved.Documents, 1)

	doc := saved.Documents[0]
	assert.Equal(t, "DocumentFile", doc.Field)
	assert.Equal(t, "road photo.jpg", doc.OriginalName)
	assert.Equal(t, int64(10), doc.Size)
	assert.Regexp(t, `^/uploads/pothole-complaints/road_photo_[0-9a-f]{32}\.jpg$`, doc.Path)

	assert.Equal(t, 1, countFiles(t, filepath.Join(f.uploadRoot, "pothole-complaints")))
	assert.Zero(t, countFiles(t, f.stagingDir))
}

func TestExecute_InsertFailureDiscardsStagedFiles(t *testing.T) {
	st := newMemoryStore()
	st.err = fmt.Errorf("%w: pq: connection reset by peer", store.ErrDatabase)
	f := newFixture(t, st, nil)

	out, err := f.handler.Execute(context.Background(), &Input{
		ApplicationType: models.TypePothole,
		Fields:          potholeFields(),
		Files:           map[string][]*storage.File{"DocumentFile": {upload("photo.png", []byte("png bytes"))}},
	})

	require.Error(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "DB_OPERATION_ERROR", out.ErrorCode)
	assert.Equal(t, "अर्ज सबमिट करण्यात अपयश. कृपया पुन्हा प्रयत्न करा.", out.Message)
	assert.NotContains(t, out.Message, "pq:")
	assert.Zero(t, countFiles(t, f.uploadRoot, f.stagingDir))
}

func TestExecute_RoundTripThroughStore(t *testing.T) {
	st := newMemoryStore()
	f := newFixture(t, st, nil)

	out, err := f.handler.Execute(context.Background(), &Input{
		ApplicationType: models.TypePothole,
		Fields:          potholeFields(),
	})
	require.NoError(t, err)

	first, err := st.GetByTrackingCode(context.Background(), out.ApplicationID)
	require.NoError(t, err)
	second, err := st.GetByTrackingCode(context.Background(), out.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, models.TypePothole, first.Type)
	assert.Equal(t, "Ravi", first.Applicant.FirstName)
	assert.Equal(t, "9876543210", first.Applicant.Mobile)
	assert.Equal(t, "411038", first.Address.PinCode)
	assert.Equal(t, models.PriorityHigh, first.Priority)
	assert.Equal(t, "MG Road", first.Payload["RoadName"])
	assert.Equal(t, int64(5), first.Payload["PotholeCount"])
	require.NotNil(t, first.Address.Latitude)
	assert.InDelta(t, 18.5204, *first.Address.Latitude, 1e-9)
}

func TestExecute_TreeFellingReportsTreesToPlant(t *testing.T) {
	f := newFixture(t, newMemoryStore(), nil)

	out, err := f.handler.Execute(context.Background(), &Input{
		ApplicationType: models.TypeTreeFelling,
		Fields:          treeFellingFields(3),
	})

	require.NoError(t, err)
	assert.Regexp(t, `^TFL\d{5}$`, out.ApplicationID)
	assert.Equal(t, map[string]interface{}{"treesToPlant": int64(30)}, out.Extra)

	resp := out.Response()
	data, ok := resp.Data.(models.SubmissionResult)
	require.True(t, ok)
	assert.Equal(t, int64(30), data.Extra["treesToPlant"])
}

func TestExecute_CertificateMessages(t *testing.T) {
	f := newFixture(t, newMemoryStore(), nil)

	out, err := f.handler.Execute(context.Background(), &Input{
		ApplicationType: models.TypeBirthCertificate,
		Fields:          map[string]interface{}{},
	})

	require.Error(t, err)
	assert.Equal(t, "कृपया सर्व आवश्यक फील्ड योग्यरित्या भरा.", out.Message)
	assert.NotEmpty(t, out.Errors)
}

func TestExecute_InvalidInput(t *testing.T) {
	f := newFixture(t, newMemoryStore(), nil)

	tests := []struct {
		name    string
		input   *Input
		code    string
		message string
	}{
		{name: "nil input", input: nil, code: "INVALID_DATA", message: "अवैध डेटा प्राप्त झाला."},
		{name: "nil fields", input: &Input{ApplicationType: models.TypeGutter}, code: "INVALID_DATA", message: "अवैध डेटा प्राप्त झाला."},
		{name: "unknown type", input: &Input{ApplicationType: "BUILDING_PERMIT", Fields: map[string]interface{}{}}, code: "INVALID_FORM_TYPE", message: msgInvalidFormType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.handler.Execute(context.Background(), tt.input)

			require.Error(t, err)
			require.NotNil(t, out)
			assert.False(t, out.Success)
			assert.Equal(t, tt.code, out.ErrorCode)
			assert.Equal(t, tt.message, out.Message)
		})
	}
}

func TestExecute_DispatchesAcknowledgement(t *testing.T) {
	dispatcher := &recordingDispatcher{err: errors.New("broker unavailable")}
	f := newFixture(t, newMemoryStore(), dispatcher)

	out, err := f.handler.Execute(context.Background(), &Input{
		ApplicationType: models.TypePothole,
		Fields:          potholeFields(),
	})

	require.NoError(t, err, "dispatch failures never fail a submission")
	require.Len(t, dispatcher.events, 1)
	event := dispatcher.events[0]
	assert.Equal(t, out.ApplicationID, event.TrackingCode)
	assert.Equal(t, "Mr Ravi Patil", event.ApplicantName)
	assert.Equal(t, "ravi@example.com", event.Email)
	assert.Equal(t, models.PriorityHigh, event.Priority)
}

// ==========================
// Update / Delete
// ==========================

func seedTreeTrimming(t *testing.T, f *fixture) string {
	out, err := f.handler.Execute(context.Background(), &Input{
		ApplicationType: models.TypeTreeTrimming,
		Fields:          treeTrimmingFields(true),
	})
	require.NoError(t, err)
	return out.ApplicationID
}

func TestUpdate_FlagsApplicationAndAttachesDocuments(t *testing.T) {
	st := newMemoryStore()
	f := newFixture(t, st, nil)
	code := seedTreeTrimming(t, f)

	out, err := f.handler.Update(context.Background(), &UpdateInput{
		ApplicationType: models.TypeTreeTrimming,
		TrackingCode:    " " + code + " ",
		UpdatedBy:       "clerk01",
		Fields:          treeTrimmingFields(true),
		Files:           map[string][]*storage.File{"NOCLetterFile": {upload("noc.pdf", []byte("%PDF-1.4"))}},
	})

	require.NoError(t, err)
	assert.Equal(t, "वृक्ष छाटणी अर्ज यशस्वीरित्या अपडेट झाला!", out.Message)
	assert.Equal(t, code, out.ApplicationID)

	saved, err := st.GetByTrackingCode(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, "Updated", saved.Status)
	assert.Equal(t, "clerk01", saved.UpdatedBy)
	require.Len(t, saved.Documents, 1)
	assert.Contains(t, saved.Documents[0].Path, "/uploads/tree-trimming/noc-letters/")
	assert.Equal(t, 1, countFiles(t, filepath.Join(f.uploadRoot, "tree-trimming", "noc-letters")))
}

func TestUpdate_Failures(t *testing.T) {
	f := newFixture(t, newMemoryStore(), nil)

	tests := []struct {
		name  string
		input *UpdateInput
		code  string
	}{
		{name: "missing id", input: &UpdateInput{ApplicationType: models.TypeTreeTrimming, Fields: treeTrimmingFields(true)}, code: "VALIDATION_FAILED"},
		{name: "not updatable", input: &UpdateInput{ApplicationType: models.TypePothole, TrackingCode: "RPF00001", Fields: potholeFields()}, code: "INVALID_FORM_TYPE"},
		{name: "other form's code", input: &UpdateInput{ApplicationType: models.TypeTreeTrimming, TrackingCode: "RPF00001", Fields: treeTrimmingFields(true)}, code: "INVALID_TRACKING_CODE"},
		{name: "legacy code", input: &UpdateInput{ApplicationType: models.TypeTreeTrimming, TrackingCode: "TTR20260301-101500-123", Fields: treeTrimmingFields(true)}, code: "INVALID_TRACKING_CODE"},
		{name: "unknown application", input: &UpdateInput{ApplicationType: models.TypeTreeTrimming, TrackingCode: "TTR00042", Fields: treeTrimmingFields(true)}, code: "APPLICATION_NOT_FOUND"},
		{name: "terms declined", input: &UpdateInput{ApplicationType: models.TypeTreeTrimming, TrackingCode: "TTR00042", Fields: treeTrimmingFields(false)}, code: "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.handler.Update(context.Background(), tt.input)

			require.Error(t, err)
			assert.False(t, out.Success)
			assert.Equal(t, tt.code, out.ErrorCode)
		})
	}
}

func TestDelete_SoftDeletesWithDefaultActor(t *testing.T) {
	st := newMemoryStore()
	f := newFixture(t, st, nil)
	code := seedTreeTrimming(t, f)

	out, err := f.handler.Delete(context.Background(), &DeleteInput{
		ApplicationType: models.TypeTreeTrimming,
		TrackingCode:    code,
	})

	require.NoError(t, err)
	assert.Equal(t, "वृक्ष छाटणी अर्ज यशस्वीरित्या डिलीट झाला!", out.Message)
	assert.Equal(t, []string{"System"}, st.deletes)

	_, err = st.GetByTrackingCode(context.Background(), code)
	assert.ErrorIs(t, err, store.ErrNotFound)

	out, err = f.handler.Delete(context.Background(), &DeleteInput{
		ApplicationType: models.TypeTreeTrimming,
		TrackingCode:    code,
	})
	require.Error(t, err)
	assert.Equal(t, "APPLICATION_NOT_FOUND", out.ErrorCode)
}

func TestLoadConfig_Defaults(t *testing.T) {
	c := LoadConfig(&config.Config{})

	assert.Equal(t, DefaultProcessID, c.ProcessID)
	assert.Equal(t, 30*time.Second, c.Timeout)
}
