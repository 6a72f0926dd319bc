package leads

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ImportResult is the outcome of parsing a spreadsheet export.
// Rows are the valid rows; invalid rows are counted in Skipped.
type ImportResult struct {
	Rows    []ImportRow `json:"rows"`
	Skipped int         `json:"skipped"`
	Errors  []string    `json:"errors,omitempty"`
}

var contactHeaders = []string{"whatsapp", "phone", "telefone", "contact"}

// ParseCSV reads a header-driven CSV. Recognised columns are name,
// whatsapp (or phone), email and tags; tags are separated by ';'.
func ParseCSV(r io.Reader) (ImportResult, error) {
	result := ImportResult{}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return result, fmt.Errorf("%w: empty file", ErrValidation)
		}
		return result, fmt.Errorf("read header: %w", err)
	}
	index := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if key != "" {
			index[key] = i
		}
	}

	nameIdx, ok := index["name"]
	if !ok {
		return result, fmt.Errorf("%w: csv missing 'name' column", ErrValidation)
	}
	contactIdx := -1
	for _, h := range contactHeaders {
		if i, ok := index[h]; ok {
			contactIdx = i
			break
		}
	}
	if contactIdx < 0 {
		return result, fmt.Errorf("%w: csv missing 'whatsapp' column", ErrValidation)
	}

	field := func(record []string, key string) string {
		i, ok := index[key]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	row := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row, err))
			result.Skipped++
			continue
		}
		if isBlank(record) {
			continue
		}

		var name, contact string
		if nameIdx < len(record) {
			name = strings.TrimSpace(record[nameIdx])
		}
		if contactIdx < len(record) {
			contact = normalizePhone(record[contactIdx])
		}
		if name == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: name required", row))
			result.Skipped++
			continue
		}
		if contact == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: whatsapp required", row))
			result.Skipped++
			continue
		}

		var tags []string
		if raw := field(record, "tags"); raw != "" {
			tags = cleanTags(strings.Split(raw, ";"))
		}
		result.Rows = append(result.Rows, ImportRow{
			Name:          name,
			ContactHandle: contact,
			Email:         field(record, "email"),
			Tags:          tags,
		})
	}
	return result, nil
}

// normalizePhone keeps digits only, so "+55 (11) 99999-1111" becomes "5511999991111".
func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
