package prompts

import (
	"fmt"
	"slices"
	"strings"
)

// TableColumns maps a schema-qualified table name to its ordered columns.
type TableColumns map[string][]string

// Validate checks that every table is qualified with the given schema and
// lists at least one column.
func (tc TableColumns) Validate(schema string) error {
	if len(tc) == 0 {
		return fmt.Errorf("table columns are required")
	}
	prefix := schema + "."
	for table, columns := range tc {
		if !strings.HasPrefix(table, prefix) || len(table) == len(prefix) {
			return fmt.Errorf("table %q is not qualified with schema %q", table, schema)
		}
		if len(columns) == 0 {
			return fmt.Errorf("table %q has no columns", table)
		}
	}
	return nil
}

// Tables returns the table names in sorted order.
func (tc TableColumns) Tables() []string {
	tables := make([]string, 0, len(tc))
	for table := range tc {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	return tables
}

// String renders the mapping deterministically for prompt context, e.g.
// {'gold.orders': ['order_id', 'order_time']}.
func (tc TableColumns) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, table := range tc.Tables() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("'" + table + "': [")
		for j, column := range tc[table] {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("'" + column + "'")
		}
		b.WriteString("]")
	}
	b.WriteString("}")
	return b.String()
}
