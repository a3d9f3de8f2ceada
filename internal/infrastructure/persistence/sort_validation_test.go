package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns ASC", "", "ASC"},
		{"ASC uppercase returns ASC", "ASC", "ASC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"DESC uppercase returns DESC", "DESC", "DESC"},
		{"desc lowercase returns DESC", "desc", "DESC"},
		{"invalid value returns ASC", "INVALID", "ASC"},
		{"sql injection attempt returns ASC", "DESC; DROP TABLE sales_register;--", "ASC"},
		{"whitespace only returns ASC", "   ", "ASC"},
		{"whitespace around DESC returns DESC", "  desc  ", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateSortOrder(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		defaultField string
		expected     string
	}{
		{"empty string returns default", "", "sale_date", "sale_date"},
		{"valid field returns field", "seller_sku", "sale_date", "seller_sku"},
		{"valid field marketplace returns field", "marketplace", "sale_date", "marketplace"},
		{"invalid field returns default", "invalid_field", "sale_date", "sale_date"},
		{"sql injection attempt returns default", "sale_date; DROP TABLE sales_register;--", "sale_date", "sale_date"},
		{"case sensitive - uppercase invalid", "SALE_DATE", "sale_date", "sale_date"},
		{"whitespace only returns default", "   ", "sale_date", "sale_date"},
		{"whitespace around valid field returns field", "  status_norm  ", "sale_date", "status_norm"},
		{"field with spaces injection returns default", "sale_date documents", "sale_date", "sale_date"},
		{"field with quotes injection returns default", "sale_date'--", "sale_date", "sale_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateSortField(tt.input, RegisterSortFields, tt.defaultField)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSQLInjectionPrevention(t *testing.T) {
	injectionPayloads := []string{
		"sale_date; DROP TABLE sales_register;--",
		"sale_date' OR '1'='1",
		"sale_date\"; DROP TABLE sales_register;--",
		"sale_date UNION SELECT * FROM sync_checkpoints",
		"sale_date ORDER BY 1",
		"sale_date, (SELECT cursor FROM sync_checkpoints)",
		"CASE WHEN 1=1 THEN sale_date ELSE marketplace END",
		"sale_date/**/;DROP TABLE sales_register",
		"sale_date\n; DROP TABLE sales_register",
		"sale_date\t; DROP TABLE sales_register",
		"' OR ''='",
		"1; EXEC xp_cmdshell('dir')",
	}

	for _, payload := range injectionPayloads {
		t.Run("field: "+payload[:min(len(payload), 30)], func(t *testing.T) {
			result := ValidateSortField(payload, RegisterSortFields, "sale_date")
			assert.Equal(t, "sale_date", result, "SQL injection payload should be rejected: %s", payload)
		})

		t.Run("order: "+payload[:min(len(payload), 30)], func(t *testing.T) {
			result := ValidateSortOrder(payload)
			assert.Equal(t, "ASC", result, "SQL injection payload should be rejected: %s", payload)
		})
	}
}
