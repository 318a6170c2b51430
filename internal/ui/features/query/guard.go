package query

import (
	"errors"
	"strings"
	"unicode"
)

// Errors returned by CheckReadOnly.
var (
	ErrEmptyQuery         = errors.New("query cannot be empty")
	ErrMultipleStatements = errors.New("only a single statement is allowed")
	ErrNotReadOnly        = errors.New("only read-only statements are allowed")
)

var readOnlyKeywords = map[string]struct{}{
	"SELECT":   {},
	"WITH":     {},
	"SHOW":     {},
	"DESCRIBE": {},
	"VALUES":   {},
	"TABLE":    {},
}

// CheckReadOnly accepts a single read-only statement and returns it without
// leading comments or trailing semicolons.
func CheckReadOnly(sql string) (string, error) {
	stmt, rest := splitStatement(sql)
	stmt = strings.TrimSpace(stripLeadingComments(stmt))
	if stmt == "" {
		return "", ErrEmptyQuery
	}
	if strings.TrimSpace(stripLeadingComments(rest)) != "" {
		return "", ErrMultipleStatements
	}

	if !readOnly(stmt) {
		return "", ErrNotReadOnly
	}
	return stmt, nil
}

// readOnly reports whether stmt starts with a read-only keyword. EXPLAIN is
// judged by the statement it wraps, since EXPLAIN ANALYZE executes it.
func readOnly(stmt string) bool {
	word := firstWord(stmt)
	switch strings.ToUpper(word) {
	case "EXPLAIN":
		inner := explained(stmt[len(word):])
		return inner != "" && readOnly(inner)
	default:
		_, ok := readOnlyKeywords[strings.ToUpper(word)]
		return ok
	}
}

// explained skips EXPLAIN options, bare or parenthesised, and returns the
// statement that follows.
func explained(s string) string {
	for {
		s = stripLeadingComments(s)
		if strings.HasPrefix(s, "(") {
			end := strings.IndexByte(s, ')')
			if end < 0 {
				return ""
			}
			s = s[end+1:]
			continue
		}
		word := firstWord(s)
		switch strings.ToUpper(word) {
		case "ANALYZE", "ANALYSE", "VERBOSE":
			s = s[len(word):]
		default:
			return s
		}
	}
}

// splitStatement splits sql at the first semicolon outside quotes and comments.
// Trailing semicolons are dropped.
func splitStatement(sql string) (stmt, rest string) {
	var quote rune
	lineComment, blockComment := false, false

	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case lineComment:
			if c == '\n' {
				lineComment = false
			}
		case blockComment:
			if c == '*' && next == '/' {
				blockComment = false
				i++
			}
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '-' && next == '-':
			lineComment = true
			i++
		case c == '/' && next == '*':
			blockComment = true
			i++
		case c == ';':
			rest = strings.TrimLeftFunc(string(runes[i+1:]), func(r rune) bool {
				return unicode.IsSpace(r) || r == ';'
			})
			return string(runes[:i]), rest
		}
	}
	return sql, ""
}

func stripLeadingComments(s string) string {
	for {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "--"):
			idx := strings.IndexByte(s, '\n')
			if idx < 0 {
				return ""
			}
			s = s[idx+1:]
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx < 0 {
				return ""
			}
			s = s[idx+2:]
		default:
			return s
		}
	}
}

func firstWord(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if end < 0 {
		return s
	}
	return s[:end]
}
