package models

import "strings"

// Street is an on-street option value discovered from the search form
type Street string

// Row holds one permit record, values positioned by the table headers
type Row struct {
	Values []string `json:"values"`
}

// Get returns the value for a header, or "" when the header is unknown
func (r Row) Get(headers []string, header string) string {
	for i, h := range headers {
		if h == header && i < len(r.Values) {
			return r.Values[i]
		}
	}
	return ""
}

// IsBlank reports whether every value is empty
func (r Row) IsBlank() bool {
	for _, v := range r.Values {
		if v != "" {
			return false
		}
	}
	return true
}

// key joins the values with a separator that cannot occur in cell text
func (r Row) key() string {
	return strings.Join(r.Values, "\x1f")
}

// PermitTable represents the permit records found for one street
type PermitTable struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// Clean drops all-blank rows and exact duplicates, keeping first occurrences in order
func (t *PermitTable) Clean() {
	seen := make(map[string]struct{}, len(t.Rows))
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		if row.IsBlank() {
			continue
		}
		k := row.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, row)
	}
	t.Rows = kept
}

// TableState is the result of reading a captured result page
type TableState struct {
	Empty bool         `json:"empty"`
	Table *PermitTable `json:"table,omitempty"`
}

// EmptyTable is the "No permits found" state
func EmptyTable() TableState {
	return TableState{Empty: true}
}

// PopulatedTable wraps a parsed table
func PopulatedTable(table *PermitTable) TableState {
	return TableState{Table: table}
}
