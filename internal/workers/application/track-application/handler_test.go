// internal/workers/application/track-application/handler_test.go
package trackapplication

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rts-portal/internal/common/config"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/models"
	"rts-portal/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lookupStore answers FindForTracking from a fixed set of applications.
type lookupStore struct {
	store.Store
	apps  map[string]*models.Application
	err   error
	calls int
}

func (s *lookupStore) FindForTracking(_ context.Context, code, mobile string) (*models.Application, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	app, ok := s.apps[code]
	if !ok || (mobile != "" && app.Applicant.Mobile != mobile) {
		return nil, store.ErrNotFound
	}
	return app, nil
}

func gutterApplication() *models.Application {
	updated := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	return &models.Application{
		ID:           12,
		TrackingCode: "GUT00012",
		Type:         models.TypeGutter,
		FormName:     "Gutter Repair Complaint",
		Status:       models.StatusInProgress,
		Priority:     models.PriorityHigh,
		AssignedTo:   "Ward Office 3",
		Remarks:      "Crew scheduled",
		IsActive:     true,
		CreatedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:    &updated,
		Applicant: models.Applicant{
			Title:     "Smt",
			FirstName: "Asha",
			LastName:  "Kulkarni",
			Mobile:    "9822012345",
			Email:     "asha@example.com",
		},
		Address: models.Address{Area: "Shivajinagar"},
	}
}

func newTestHandler(t *testing.T, st *lookupStore) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, st, nil, nil, logger.NewTestLogger(t))
}

func seeded() *lookupStore {
	return &lookupStore{apps: map[string]*models.Application{"GUT00012": gutterApplication()}}
}

func TestExecute_FoundWithCodeAndMobile(t *testing.T) {
	h := newTestHandler(t, seeded())

	out, err := h.Execute(context.Background(), &Input{ComplaintNumber: " gut00012 ", MobileNumber: "9822012345"})

	require.NoError(t, err)
	assert.True(t, out.IsFound)
	assert.Equal(t, "GUT00012", out.ComplaintNumber)
	assert.Equal(t, models.TypeGutter, out.ApplicationType)
	assert.Equal(t, "In Progress", out.Status)
	assert.Equal(t, "प्रक्रिया सुरू", out.StatusDisplay)
	assert.Equal(t, "उच्च", out.PriorityDisplay)
	assert.Equal(t, "Smt Asha Kulkarni", out.ApplicantName)
	assert.Equal(t, "Shivajinagar", out.Area)
	assert.Equal(t, "Ward Office 3", out.AssignedTo)
	require.NotNil(t, out.CreatedDate)
	assert.Equal(t, 2026, out.CreatedDate.Year())
	assert.NotNil(t, out.UpdatedDate)
	assert.Nil(t, out.ResolvedDate)
}

func TestExecute_CodeAloneIsEnough(t *testing.T) {
	h := newTestHandler(t, seeded())

	out, err := h.Execute(context.Background(), &Input{ComplaintNumber: "GUT00012"})

	require.NoError(t, err)
	assert.True(t, out.IsFound)
}

func TestExecute_NotFound(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{name: "wrong mobile", input: &Input{ComplaintNumber: "GUT00012", MobileNumber: "9000000000"}},
		{name: "unknown code", input: &Input{ComplaintNumber: "RPF99999"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, seeded())

			out, err := h.Execute(context.Background(), tt.input)

			require.NoError(t, err)
			assert.False(t, out.IsFound)
			assert.Equal(t, MsgNotFound, out.Message)
			assert.Empty(t, out.Status)
		})
	}
}

func TestExecute_UnissuedCodeIsNotFoundWithoutLookup(t *testing.T) {
	for _, code := range []string{"ABC12345", "XYZ00001", "GUT-12", "RPF-00001"} {
		t.Run(code, func(t *testing.T) {
			st := seeded()
			h := newTestHandler(t, st)

			out, err := h.Execute(context.Background(), &Input{ComplaintNumber: code})

			require.NoError(t, err)
			assert.False(t, out.IsFound)
			assert.Equal(t, MsgNotFound, out.Message)
			assert.Empty(t, out.Errors)
			assert.Zero(t, st.calls)
		})
	}
}

func TestExecute_StoreErrorIsReported(t *testing.T) {
	st := &lookupStore{err: fmt.Errorf("%w: connection refused", store.ErrDatabase)}
	h := newTestHandler(t, st)

	out, err := h.Execute(context.Background(), &Input{ComplaintNumber: "GUT00012"})

	require.Error(t, err)
	assert.False(t, out.IsFound)
	assert.Equal(t, MsgError, out.Message)
	assert.NotContains(t, out.Message, "connection refused")
}

func TestExecute_ValidationSkipsLookup(t *testing.T) {
	tests := []struct {
		name   string
		input  *Input
		fields []string
	}{
		{name: "empty", input: &Input{}, fields: []string{"ComplaintNumber"}},
		{name: "nil input", input: nil, fields: []string{"ComplaintNumber"}},
		{name: "too long", input: &Input{ComplaintNumber: "GUT000000000000000012"}, fields: []string{"ComplaintNumber"}},
		{name: "legacy format", input: &Input{ComplaintNumber: "POT20250101-101010-123"}, fields: []string{"ComplaintNumber"}},
		{name: "short mobile", input: &Input{ComplaintNumber: "GUT00012", MobileNumber: "98220"}, fields: []string{"MobileNumber"}},
		{name: "both", input: &Input{MobileNumber: "abcdefghij"}, fields: []string{"ComplaintNumber", "MobileNumber"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := seeded()
			h := newTestHandler(t, st)

			out, err := h.Execute(context.Background(), tt.input)

			require.Error(t, err)
			assert.False(t, out.IsFound)
			require.Len(t, out.Errors, len(tt.fields))
			for i, f := range tt.fields {
				assert.Equal(t, f, out.Errors[i].Field)
			}
			assert.Zero(t, st.calls)
		})
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "सबमिट केले", StatusDisplay("Submitted"))
	assert.Equal(t, "पुनरावलोकनाधीन", StatusDisplay("Under Review"))
	assert.Equal(t, "मंजूर", StatusDisplay("Approved"))
	assert.Equal(t, "नाकारले", StatusDisplay("Rejected"))
	assert.Equal(t, "पूर्ण", StatusDisplay("Completed"))
	assert.Equal(t, "Updated", StatusDisplay("Updated"))

	assert.Equal(t, "मध्यम", PriorityDisplay("Medium"))
	assert.Equal(t, "कमी", PriorityDisplay("Low"))
	assert.Equal(t, "Urgent", PriorityDisplay("Urgent"))
}

func TestLoadConfig(t *testing.T) {
	cfg := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: true, Timeout: 4000},
	}}
	assert.Equal(t, 4*time.Second, LoadConfig(cfg).Timeout)
	assert.Equal(t, 30*time.Second, LoadConfig(&config.Config{}).Timeout)
}
