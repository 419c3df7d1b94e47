package storage

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxIdentLen is the shortest identifier limit among supported backends
// (Postgres NAMEDATALEN-1).
const maxIdentLen = 63

// IdentityColumn is the generated primary key every dataset table carries.
const IdentityColumn = "id"

// foldAccents decomposes s and drops combining marks, so "Região" becomes
// "Regiao" before the allow-list is applied.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// allowList lower-cases s and replaces every rune outside [a-z0-9_] with '_'.
func allowList(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ColumnIdent normalizes a column name into a safe SQL identifier: spaces
// become underscores, accents are folded and anything outside [a-z0-9_]
// becomes '_'. A result that is empty or starts with a digit is prefixed
// with "c_".
func ColumnIdent(name string) string {
	s := strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	s = allowList(foldAccents(s))
	if s == "" {
		return "c_"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "c_" + s
	}
	return truncate(s, maxIdentLen)
}

// TableName derives a table name from an upload identifier such as a file
// name: non-alphanumerics become '_' and the result is lower-cased, so
// "ev_sales.csv" becomes "ev_sales_csv". A leading digit is prefixed with
// "t_" and an empty name becomes "dataset".
func TableName(upload string) string {
	s := allowList(foldAccents(strings.TrimSpace(upload)))
	if strings.Trim(s, "_") == "" {
		return "dataset"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "t_" + s
	}
	return truncate(s, maxIdentLen)
}

// uniqueIdents normalizes names with ColumnIdent and resolves collisions,
// including with the identity column, by appending _2, _3, ...
func uniqueIdents(names []string) []string {
	seen := map[string]bool{IdentityColumn: true}
	out := make([]string, len(names))
	for i, n := range names {
		base := ColumnIdent(n)
		id := base
		for k := 2; seen[id]; k++ {
			suffix := "_" + strconv.Itoa(k)
			id = truncate(base, maxIdentLen-len(suffix)) + suffix
		}
		seen[id] = true
		out[i] = id
	}
	return out
}
