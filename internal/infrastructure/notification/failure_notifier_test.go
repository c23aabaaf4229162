package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leadcrm/backend/internal/domain/lead"
)

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

func testPayload() *lead.OrderPayload {
	return lead.NewOrderPayload("5",
		lead.LeadInfo{Phone: "+380501112233", FullName: "Ann Lee"},
		lead.Product{SKU: "SKU-A", Name: "Sofa"},
		nil,
	)
}

func TestFailureNotifier_SendsPayloadAsJSON(t *testing.T) {
	sender := new(MockEmailSender)
	payload := testPayload()

	var sentBody string
	sender.On("SendEmail", mock.Anything, "admin@example.com", FailureSubject, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { sentBody = args.String(3) }).
		Return(nil).Once()

	notifier := NewFailureNotifier("admin@example.com", sender, nil, nil)
	notifier.NotifySubmissionFailure(context.Background(), payload)

	sender.AssertExpectations(t)

	var decoded lead.OrderPayload
	require.NoError(t, json.Unmarshal([]byte(sentBody), &decoded))
	assert.Equal(t, payload.SourceUUID, decoded.SourceUUID)
	assert.Equal(t, "+380501112233", decoded.Buyer.Phone)
	assert.Equal(t, "SKU-A", decoded.Products[0].SKU)
}

func TestFailureNotifier_NoAdminEmail(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sender := new(MockEmailSender)

	notifier := NewFailureNotifier("", sender, nil, zap.New(core))
	assert.NotPanics(t, func() {
		notifier.NotifySubmissionFailure(context.Background(), testPayload())
	})

	sender.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1, logs.FilterMessage("Admin email not configured, skipping failure notification").Len())
}

func TestFailureNotifier_SendErrorIsSwallowed(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	sender := new(MockEmailSender)
	sender.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("relay down")).Once()

	notifier := NewFailureNotifier("admin@example.com", sender, nil, zap.New(core))
	notifier.NotifySubmissionFailure(context.Background(), testPayload())

	sender.AssertExpectations(t)
	entries := logs.FilterMessage("Failed to send failure notification").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "relay down", entries[0].ContextMap()["error"])
}

func TestFailureNotifier_IgnoresCallerCancellation(t *testing.T) {
	sender := new(MockEmailSender)
	sender.On("SendEmail", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }),
		mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewFailureNotifier("admin@example.com", sender, nil, nil).NotifySubmissionFailure(ctx, testPayload())
	sender.AssertExpectations(t)
}
