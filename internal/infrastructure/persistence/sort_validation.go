package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "ASC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "DESC" {
		return "DESC"
	}
	return "ASC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// RegisterSortFields contains allowed sort fields for sales register
// queries. Only key or indexed columns are sortable; anything else
// falls back to sale_date.
var RegisterSortFields = map[string]bool{
	"sale_date":         true,
	"marketplace":       true,
	"document_no":       true,
	"seller_sku":        true,
	"status_norm":       true,
	"event_time_source": true,
	"loaded_at_utc":     true,
}
