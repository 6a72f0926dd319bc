package leads

import (
	"errors"
	"strings"
	"testing"
)

func TestParseCSV_HeaderDrivenRows(t *testing.T) {
	in := "\ufeffName,Phone,Email,Tags\n" +
		"Novo Cliente 1,+55 (11) 98888-7777,novo1@email.com,Investidor;VIP\n" +
		",5511988886666,,\n" +
		"Novo Cliente 3,,novo3@email.com,\n" +
		"\n" +
		"Novo Cliente 4,5511988885555,,\n"

	res, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 valid rows, got %d", len(res.Rows))
	}
	if res.Skipped != 2 || len(res.Errors) != 2 {
		t.Fatalf("expected 2 skipped rows, got %d (%v)", res.Skipped, res.Errors)
	}
	first := res.Rows[0]
	if first.ContactHandle != "5511988887777" {
		t.Fatalf("expected normalized phone, got %q", first.ContactHandle)
	}
	if len(first.Tags) != 2 || first.Tags[1] != "VIP" {
		t.Fatalf("unexpected tags: %v", first.Tags)
	}
}

func TestParseCSV_MissingColumns(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader("email\nx@y.com\n")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing name column, got %v", err)
	}
	if _, err := ParseCSV(strings.NewReader("name,email\nA,x@y.com\n")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing whatsapp column, got %v", err)
	}
	if _, err := ParseCSV(strings.NewReader("")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty file, got %v", err)
	}
}
