// Package validation holds the allowed values of enumerated columns, read
// once from the schema at startup and passed to the handlers that check
// query filters.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Column names one enumerated column.
type Column struct {
	Table string
	Name  string
}

func (c Column) String() string { return c.Table + "." + c.Name }

// Well-known enumerated columns.
var (
	SlotStatus    = Column{Table: "slots", Name: "status"}
	SlotType      = Column{Table: "slots", Name: "slot_type"}
	BookingStatus = Column{Table: "bookings", Name: "status"}
)

// EnumTable is an immutable set of lower-cased allowed values per column.
// The zero value allows nothing.
type EnumTable struct {
	values map[Column]map[string]struct{}
}

// NewEnumTable copies src; later changes to src do not affect the table.
func NewEnumTable(src map[Column][]string) EnumTable {
	t := EnumTable{values: make(map[Column]map[string]struct{}, len(src))}
	for col, vals := range src {
		set := make(map[string]struct{}, len(vals))
		for _, v := range vals {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				set[v] = struct{}{}
			}
		}
		t.values[col] = set
	}
	return t
}

// Values returns a sorted copy of the allowed values of col.
func (t EnumTable) Values(col Column) []string {
	set := t.values[col]
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether v is allowed in col, ignoring case.
func (t EnumTable) Contains(col Column, v string) bool {
	_, ok := t.values[col][strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// InvalidValueError names the first rejected value of a list.
type InvalidValueError struct {
	Column Column
	Value  string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Column.Name, e.Value)
}

// ParseList splits a comma separated filter such as "available,reserved",
// lower-cases each item and checks it against col.  Empty items are skipped
// and duplicates removed.
func (t EnumTable) ParseList(col Column, raw string) ([]string, error) {
	out := []string{}
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		v := strings.ToLower(strings.TrimSpace(part))
		if v == "" || seen[v] {
			continue
		}
		if !t.Contains(col, v) {
			return nil, &InvalidValueError{Column: col, Value: v}
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

var enumTypeRe = regexp.MustCompile(`(?i)^enum\((.+)\)$`)

// ParseEnumType extracts the members of a MySQL column type such as
// "enum('Available','Reserved','Occupied')".
func ParseEnumType(columnType string) ([]string, error) {
	m := enumTypeRe.FindStringSubmatch(strings.TrimSpace(columnType))
	if m == nil {
		return nil, fmt.Errorf("not an enum column type: %q", columnType)
	}
	parts := strings.Split(m[1], ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimPrefix(p, "'")
		p = strings.TrimSuffix(p, "'")
		out = append(out, strings.ReplaceAll(p, "''", "'"))
	}
	return out, nil
}
