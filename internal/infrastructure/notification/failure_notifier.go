package notification

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/leadcrm/backend/internal/domain/lead"
	"github.com/leadcrm/backend/internal/infrastructure/telemetry"
)

// FailureSubject is the subject of every failed-submission email
const FailureSubject = "Posting lead information to CRM failed"

const defaultSendTimeout = 30 * time.Second

// FailureNotifier emails the attempted order payload to the site administrator
type FailureNotifier struct {
	adminEmail string
	sender     EmailSender
	metrics    *telemetry.LeadMetrics
	logger     *zap.Logger
}

// NewFailureNotifier creates a notifier. An empty adminEmail or nil sender
// turns every notification into a logged no-op.
func NewFailureNotifier(adminEmail string, sender EmailSender, metrics *telemetry.LeadMetrics, logger *zap.Logger) *FailureNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailureNotifier{
		adminEmail: adminEmail,
		sender:     sender,
		metrics:    metrics,
		logger:     logger,
	}
}

// NotifySubmissionFailure sends the payload as pretty JSON. It never fails.
func (n *FailureNotifier) NotifySubmissionFailure(ctx context.Context, payload *lead.OrderPayload) {
	ctx, span := telemetry.StartSpan(ctx, "notification.submission_failure")
	defer span.End()

	log := n.logger.With(zap.String("source_uuid", payload.SourceUUID))

	if n.adminEmail == "" || n.sender == nil {
		log.Warn("Admin email not configured, skipping failure notification")
		n.metrics.RecordNotification(ctx, telemetry.NotificationSkipped)
		return
	}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Error("Failed to encode order payload for notification", zap.Error(err))
		n.metrics.RecordNotification(ctx, telemetry.NotificationFailed)
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultSendTimeout)
	defer cancel()

	if err := n.sender.SendEmail(sendCtx, n.adminEmail, FailureSubject, string(body)); err != nil {
		telemetry.RecordError(span, err)
		log.Error("Failed to send failure notification",
			zap.String("admin_email", n.adminEmail),
			zap.Error(err),
		)
		n.metrics.RecordNotification(ctx, telemetry.NotificationFailed)
		return
	}

	telemetry.AddEvent(span, "notification_sent", "recipient", n.adminEmail)
	log.Info("Failure notification sent", zap.String("admin_email", n.adminEmail))
	n.metrics.RecordNotification(ctx, telemetry.NotificationSent)
}

var _ lead.Notifier = (*FailureNotifier)(nil)
