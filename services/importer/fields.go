package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Errors collects row errors while cells are parsed
type Errors struct {
	list []RowError
}

// Add appends an error for a cell
func (e *Errors) Add(row int, column, format string, args ...interface{}) {
	e.list = append(e.list, RowError{Row: row, Column: column, Message: fmt.Sprintf(format, args...)})
}

// Empty reports whether no error was collected
func (e *Errors) Empty() bool { return len(e.list) == 0 }

// List returns the collected errors
func (e *Errors) List() []RowError { return e.list }

// RequireField returns the trimmed value, recording an error when it is blank
func (e *Errors) RequireField(value string, row int, column string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		e.Add(row, column, "required")
	}
	return v
}

// ParseDate parses a YYYY-MM-DD cell. Blank cells yield nil.
func (e *Errors) ParseDate(value string, row int, column string, required bool) *time.Time {
	v := strings.TrimSpace(value)
	if v == "" {
		if required {
			e.Add(row, column, "required")
		}
		return nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		e.Add(row, column, "invalid date %q (YYYY-MM-DD)", v)
		return nil
	}
	return &t
}

// ParseBoolean accepts true/1/yes/y and false/0/no/n in any case. Blank cells yield nil.
func (e *Errors) ParseBoolean(value string, row int, column string) *bool {
	v := strings.ToLower(strings.TrimSpace(value))
	var b bool
	switch v {
	case "":
		return nil
	case "true", "1", "yes", "y":
		b = true
	case "false", "0", "no", "n":
		b = false
	default:
		e.Add(row, column, "invalid value %q (true/false, yes/no, 1/0)", value)
		return nil
	}
	return &b
}

// ParseNumber parses a decimal cell. Blank cells yield nil.
func (e *Errors) ParseNumber(value string, row int, column string, required bool) *decimal.Decimal {
	v := strings.TrimSpace(value)
	if v == "" {
		if required {
			e.Add(row, column, "required")
		}
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		e.Add(row, column, "not a number: %q", v)
		return nil
	}
	return &d
}

// ParseInt parses a whole number cell. Spreadsheet exports such as "30.0" are
// accepted; a fractional part is a row error.
func (e *Errors) ParseInt(value string, row int, column string, required bool) *int {
	d := e.ParseNumber(value, row, column, required)
	if d == nil {
		return nil
	}
	if !d.IsInteger() {
		e.Add(row, column, "not a whole number: %q", strings.TrimSpace(value))
		return nil
	}
	n := int(d.IntPart())
	return &n
}
