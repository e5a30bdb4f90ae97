package monetdbe

import "strings"

// NamedParams holds parsed named parameter information
type NamedParams struct {
	// Query is the converted query with positional ? placeholders
	Query string

	// Names contains the parameter names in order of their first appearance
	Names []string

	// Positions maps parameter names to their 1-based positions.
	// A single named parameter may appear multiple times in the query
	Positions map[string][]int
}

// ParseNamedParams rewrites named placeholders to positional ones.
// Supported styles:
//   - :name
//   - @name
//   - $name  ($1 is left alone)
//
// Quoted strings, quoted identifiers, comments and :: casts are copied
// through untouched. It returns nil when the query has no named
// placeholders.
func ParseNamedParams(query string) *NamedParams {
	if !strings.ContainsAny(query, ":@$") {
		return nil
	}

	result := &NamedParams{Positions: make(map[string][]int)}
	var out strings.Builder
	out.Grow(len(query))
	position := 0

	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'' || c == '"':
			end := skipQuoted(query, i, c)
			out.WriteString(query[i:end])
			i = end
			continue
		case c == '-' && strings.HasPrefix(query[i:], "--"):
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				end = len(query) - i
			}
			out.WriteString(query[i : i+end])
			i += end
			continue
		case c == '/' && strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				end = len(query)
			} else {
				end = i + 2 + end + 2
			}
			out.WriteString(query[i:end])
			i = end
			continue
		case c == ':' && strings.HasPrefix(query[i:], "::"):
			out.WriteString("::")
			i += 2
			continue
		case c == '?':
			position++
		case (c == ':' || c == '@' || c == '$') && i+1 < len(query) && isIdentStart(query[i+1]):
			end := i + 1
			for end < len(query) && isIdentChar(query[end]) {
				end++
			}
			name := query[i+1 : end]
			position++
			if _, seen := result.Positions[name]; !seen {
				result.Names = append(result.Names, name)
			}
			result.Positions[name] = append(result.Positions[name], position)
			out.WriteByte('?')
			i = end
			continue
		}
		out.WriteByte(c)
		i++
	}

	if len(result.Names) == 0 {
		return nil
	}
	result.Query = out.String()
	return result
}

// skipQuoted returns the index just past the quoted run starting at i.
// A doubled quote character is an escaped quote.
func skipQuoted(s string, i int, quote byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != quote {
			continue
		}
		if j+1 < len(s) && s[j+1] == quote {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

// isIdentStart returns true if c is a valid identifier start character
func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

// isIdentChar returns true if c is a valid identifier character
func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
