// Package lead contains the Lead bounded context.
// It turns a submitted web form into a KeyCRM order request.
//
// Key concepts:
//   - Settings: per-site integration settings (API key, source, SKU spec)
//   - SkuMap: hostname to SKU resolution built from the SKU spec
//   - LeadInfo: buyer phone and name extracted from form fields
//   - MarketingAttribution: UTM parameters taken from the referring page
//   - OrderPayload: the order body sent to the CRM
//
// Design Pattern: Ports & Adapters
//   - Ports (CRMGateway, Notifier) are defined here in the domain layer
//   - Adapters (KeyCRM client, email notifier) are in the infrastructure layer
package lead
