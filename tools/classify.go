package tools

import "strings"

// mutatingKeywords are statement-level keywords that change persisted
// state when they appear inside a WITH statement body.
var mutatingKeywords = map[string]bool{
	"INSERT":  true,
	"UPDATE":  true,
	"DELETE":  true,
	"REPLACE": true,
	"MERGE":   true,
}

// IsReadOnlySQL reports whether a statement only reads. SELECT, PRAGMA,
// EXPLAIN, SHOW and DESCRIBE are read-only; a WITH statement is read-only
// unless its body contains a data-modifying keyword (SQLite allows
// WITH ... INSERT). Anything else, DDL and DML included, is a mutation.
func IsReadOnlySQL(sql string) bool {
	trimmed := stripLeadingComments(sql)
	if trimmed == "" {
		return true
	}

	keyword := firstKeyword(trimmed)
	switch keyword {
	case "SELECT", "PRAGMA", "EXPLAIN", "SHOW", "DESCRIBE", "VALUES":
		return true
	case "WITH":
		upper := strings.ToUpper(trimmed)
		for kw := range mutatingKeywords {
			if containsWord(upper, kw) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// stripLeadingComments removes leading whitespace, line comments and
// block comments so classification sees the first real keyword.
func stripLeadingComments(sql string) string {
	s := strings.TrimSpace(sql)
	for {
		switch {
		case strings.HasPrefix(s, "--"):
			idx := strings.IndexByte(s, '\n')
			if idx == -1 {
				return ""
			}
			s = strings.TrimSpace(s[idx+1:])
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx == -1 {
				return ""
			}
			s = strings.TrimSpace(s[idx+2:])
		default:
			return s
		}
	}
}

func firstKeyword(sql string) string {
	end := len(sql)
	for i, r := range sql {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '(' || r == ';' {
			end = i
			break
		}
	}
	return strings.ToUpper(sql[:end])
}

// containsWord reports whether word appears in s delimited by
// non-identifier characters.
func containsWord(s, word string) bool {
	for start := 0; ; {
		idx := strings.Index(s[start:], word)
		if idx == -1 {
			return false
		}
		idx += start
		before := idx == 0 || !isIdentChar(s[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(s) || !isIdentChar(s[afterIdx])
		if before && after {
			return true
		}
		start = idx + len(word)
	}
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
