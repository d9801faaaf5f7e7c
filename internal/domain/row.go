package domain

// Row is one spreadsheet record: a mapping from column name to cell value.
// Column ordering is carried by the header list, not by the map itself.
// Values are the JSON scalar types (string, float64, bool, nil) or absent.
type Row map[string]any

// PassthroughPredicate reports whether a row bypasses translation and is
// copied verbatim into the output under the translated column names.
type PassthroughPredicate func(Row) bool

// PassthroughNone translates every row.
func PassthroughNone(Row) bool { return false }

// PassthroughColumnEquals returns a predicate matching rows whose value in
// the given column equals the given string (e.g. Subskill == Verbal Reasoning).
func PassthroughColumnEquals(column, value string) PassthroughPredicate {
	if column == "" {
		return PassthroughNone
	}
	return func(row Row) bool {
		v, ok := row[column]
		if !ok {
			return false
		}
		s, ok := v.(string)
		return ok && s == value
	}
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
