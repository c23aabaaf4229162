package lead

import (
	"net/url"
	"strings"
)

// Form field names read by the extractor
const (
	FieldTelephone = "mf-telephone"
	FieldNumber    = "mf-number"
	FieldFirstName = "mf-listing-fname"
	FieldLastName  = "mf-listing-lname"
)

// phoneFields are checked in order; a later field overrides an earlier one
var phoneFields = []string{FieldTelephone, FieldNumber}

var nameFields = []string{FieldFirstName, FieldLastName}

// UTMKeys are the marketing parameters copied from the referrer
var UTMKeys = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
}

// LeadInfo is the buyer data taken from a form submission
type LeadInfo struct {
	Phone    string
	FullName string
}

// MarketingAttribution holds the UTM parameters present on the referrer
type MarketingAttribution map[string]string

// ExtractLead pulls phone and full name from the form fields.
// It returns ErrPhoneMissing when no phone-bearing field has a value.
func ExtractLead(formData map[string]string) (LeadInfo, error) {
	var phone string
	for _, key := range phoneFields {
		if v, ok := formData[key]; ok {
			phone = v
		}
	}

	var name strings.Builder
	for _, key := range nameFields {
		if v, ok := formData[key]; ok {
			name.WriteString(" ")
			name.WriteString(v)
		}
	}

	info := LeadInfo{
		Phone:    phone,
		FullName: strings.TrimSpace(name.String()),
	}
	if info.Phone == "" {
		return info, ErrPhoneMissing
	}
	return info, nil
}

// ExtractMarketing returns the UTM parameters found in the referrer's
// query string, or nil if there are none
func ExtractMarketing(referrer string) MarketingAttribution {
	if referrer == "" {
		return nil
	}
	u, err := url.Parse(referrer)
	if err != nil || u.RawQuery == "" {
		return nil
	}
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil && len(query) == 0 {
		return nil
	}

	var marketing MarketingAttribution
	for _, key := range UTMKeys {
		values, ok := query[key]
		if !ok || len(values) == 0 {
			continue
		}
		if marketing == nil {
			marketing = make(MarketingAttribution, len(UTMKeys))
		}
		marketing[key] = values[len(values)-1]
	}
	return marketing
}
