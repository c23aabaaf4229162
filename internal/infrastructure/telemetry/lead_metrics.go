package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Lead pipeline outcomes, used as the outcome attribute
const (
	OutcomeAccepted      = "accepted"
	OutcomeConfigMissing = "config_missing"
	OutcomeSkuUnresolved = "sku_unresolved"
	OutcomeNoProduct     = "product_not_found"
	OutcomeNoPhone       = "phone_missing"
	OutcomeCRMFailed     = "crm_failed"
)

// Notification results, used as the result attribute
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationSkipped = "skipped"
)

// LeadMetrics records lead pipeline activity.
// A nil *LeadMetrics is valid and records nothing.
type LeadMetrics struct {
	leadsProcessed       *Counter
	crmFailures          *Counter
	notifications        *Counter
	crmRequestDuration   *Histogram
	pipelineDurationHist *Histogram
}

// NewLeadMetrics registers the lead pipeline instruments on meter.
func NewLeadMetrics(meter metric.Meter) (*LeadMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		lm  LeadMetrics
		err error
	)

	lm.leadsProcessed, err = NewCounter(meter,
		"leads_processed_total",
		"Total number of lead submissions by outcome",
		"{lead}",
	)
	if err != nil {
		return nil, err
	}

	lm.crmFailures, err = NewCounter(meter,
		"crm_submission_failures_total",
		"Total number of order submissions rejected by or unreachable at the CRM",
		"{failure}",
	)
	if err != nil {
		return nil, err
	}

	lm.notifications, err = NewCounter(meter,
		"admin_notifications_total",
		"Total number of administrator failure notifications by result",
		"{notification}",
	)
	if err != nil {
		return nil, err
	}

	lm.crmRequestDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "crm_request_duration_seconds",
		Description: "Duration of KeyCRM API calls",
		Unit:        "s",
		Boundaries:  RemoteCallDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	lm.pipelineDurationHist, err = NewHistogram(meter, HistogramOpts{
		Name:        "lead_pipeline_duration_seconds",
		Description: "Duration of a full lead submission",
		Unit:        "s",
		Boundaries:  RemoteCallDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &lm, nil
}

// RecordLead counts one finished submission.
func (m *LeadMetrics) RecordLead(ctx context.Context, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrOutcome.String(outcome)}
	m.leadsProcessed.Inc(ctx, attrs...)
	m.pipelineDurationHist.RecordDuration(ctx, elapsed, attrs...)
}

// RecordCRMFailure counts one failed order submission.
func (m *LeadMetrics) RecordCRMFailure(ctx context.Context, errorCode string) {
	if m == nil {
		return
	}
	m.crmFailures.Inc(ctx, AttrErrorCode.String(errorCode))
}

// RecordCRMRequest records the duration of one CRM call.
func (m *LeadMetrics) RecordCRMRequest(ctx context.Context, operation string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.crmRequestDuration.RecordDuration(ctx, elapsed, AttrOperation.String(operation))
}

// RecordNotification counts one administrator notification attempt.
func (m *LeadMetrics) RecordNotification(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.notifications.Inc(ctx, AttrResult.String(result))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLeadMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}
