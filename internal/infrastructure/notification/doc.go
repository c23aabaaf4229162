// Package notification delivers administrator alerts for leads the CRM
// did not accept. Delivery is best effort: failures are logged and never
// propagate to the lead submitter.
package notification
