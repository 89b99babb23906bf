// internal/workers/application/submit-application/dispatch_test.go
package submitapplication

import (
	"context"
	"errors"
	"testing"

	"rts-portal/internal/common/logger"
	"rts-portal/internal/models"
	sendnotification "rts-portal/internal/workers/application/send-notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStarter struct {
	processID string
	variables interface{}
	err       error
}

func (s *fakeStarter) StartProcess(_ context.Context, processID string, variables interface{}) (int64, error) {
	s.processID = processID
	s.variables = variables
	return 2251799813685249, s.err
}

type fakeNotifier struct {
	out *sendnotification.Output
	err error
}

func (n *fakeNotifier) Notify(context.Context, models.SubmissionEvent) (*sendnotification.Output, error) {
	return n.out, n.err
}

func TestProcessDispatcher_StartsSubmittedProcess(t *testing.T) {
	starter := &fakeStarter{}
	d := NewProcessDispatcher(starter, DefaultProcessID, logger.NewTestLogger(t))
	event := models.SubmissionEvent{TrackingCode: "GUT00012", ApplicationType: models.TypeGutter}

	require.NoError(t, d.Dispatch(context.Background(), event))
	assert.Equal(t, "application-submitted", starter.processID)
	assert.Equal(t, event, starter.variables)

	starter.err = errors.New("rpc error: code = Unavailable")
	err := d.Dispatch(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GUT00012")
}

func TestDirectDispatcher(t *testing.T) {
	event := models.SubmissionEvent{TrackingCode: "OFC00003"}

	sent := NewDirectDispatcher(&fakeNotifier{out: &sendnotification.Output{Status: sendnotification.StatusSent}})
	assert.NoError(t, sent.Dispatch(context.Background(), event))

	disabled := NewDirectDispatcher(&fakeNotifier{out: &sendnotification.Output{Status: sendnotification.StatusDisabled}})
	assert.NoError(t, disabled.Dispatch(context.Background(), event))

	failed := NewDirectDispatcher(&fakeNotifier{out: &sendnotification.Output{Status: sendnotification.StatusFailed, NotificationID: "n-1"}})
	err := failed.Dispatch(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTIFICATION_SEND_FAILED")
}
