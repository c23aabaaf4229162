package lead

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Settings keys as supplied by the form settings layer
const (
	SettingAPIKey   = "api_key"
	SettingSourceID = "source_id"
	SettingSkuSpec  = "sku_spec"
)

// settingLabels maps struct fields to the names used in ConfigError
var settingLabels = map[string]string{
	"APIKey":   "API key",
	"SourceID": "Source ID",
	"SkuSpec":  "SKU",
}

var settingsValidator = validator.New()

// Settings holds the KeyCRM integration settings of one site
type Settings struct {
	APIKey   string `json:"api_key" validate:"required"`
	SourceID string `json:"source_id" validate:"required"`
	// SkuSpec is newline-delimited; each line is either a default SKU
	// or a "domain:sku" pair
	SkuSpec string `json:"sku_spec" validate:"required"`
}

// SettingsFromMap builds Settings from the loosely-typed settings mapping
func SettingsFromMap(m map[string]string) Settings {
	return Settings{
		APIKey:   m[SettingAPIKey],
		SourceID: m[SettingSourceID],
		SkuSpec:  m[SettingSkuSpec],
	}
}

// Validate reports the first missing setting as a *ConfigError
func (s Settings) Validate() error {
	err := settingsValidator.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		field := validationErrors[0].StructField()
		if label, ok := settingLabels[field]; ok {
			return &ConfigError{Field: label}
		}
		return &ConfigError{Field: field}
	}
	return err
}

// SkuMap resolves the SKU to order for a given hostname.
// It is immutable once built.
type SkuMap struct {
	byHost     map[string]string
	defaultSku string
}

// ParseSkuSpec builds a SkuMap from a SKU spec.
// A line without a colon sets the default SKU (the last one wins);
// a line with a colon maps the trimmed domain to the trimmed SKU.
// Blank lines are ignored.
func ParseSkuSpec(spec string) SkuMap {
	m := SkuMap{byHost: make(map[string]string)}
	for _, line := range strings.Split(spec, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		domain, sku, found := strings.Cut(line, ":")
		if !found {
			m.defaultSku = strings.TrimSpace(line)
			continue
		}
		m.byHost[strings.TrimSpace(domain)] = strings.TrimSpace(sku)
	}
	return m
}

// Resolve returns the SKU for host, falling back to the default SKU.
// A host entry with an empty SKU ("host:") counts as absent and also falls back.
func (m SkuMap) Resolve(host string) (string, bool) {
	if sku := m.byHost[host]; sku != "" {
		return sku, true
	}
	if m.defaultSku != "" {
		return m.defaultSku, true
	}
	return "", false
}

// Default returns the default SKU, empty if none was configured
func (m SkuMap) Default() string {
	return m.defaultSku
}

// Len returns the number of host-specific entries
func (m SkuMap) Len() int {
	return len(m.byHost)
}
