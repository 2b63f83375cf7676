package storage

// MatchPattern reports whether str matches the Redis glob-style pattern.
//
// Supported syntax:
//   - * matches any sequence of characters, including the empty one
//   - ? matches exactly one character
//   - [abc], [a-z] match one character from the set or range
//   - [^abc] matches one character not in the set
//   - \x matches x literally
func MatchPattern(str, pattern string) bool {
	return matchGlob(pattern, str, 0)
}

// maxGlobDepth bounds the backtracking recursion on patterns with many stars
const maxGlobDepth = 1000

func matchGlob(pattern, str string, depth int) bool {
	if depth > maxGlobDepth {
		return false
	}

	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			for len(pattern) > 1 && pattern[1] == '*' {
				pattern = pattern[1:]
			}
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(str); i++ {
				if matchGlob(pattern[1:], str[i:], depth+1) {
					return true
				}
			}
			return false

		case '?':
			if len(str) == 0 {
				return false
			}
			pattern, str = pattern[1:], str[1:]

		case '[':
			if len(str) == 0 {
				return false
			}
			matched, rest := matchClass(pattern[1:], str[0])
			if !matched {
				return false
			}
			pattern, str = rest, str[1:]

		case '\\':
			if len(pattern) >= 2 {
				pattern = pattern[1:]
			}
			fallthrough

		default:
			if len(str) == 0 || str[0] != pattern[0] {
				return false
			}
			pattern, str = pattern[1:], str[1:]
		}
	}

	return len(str) == 0
}

// matchClass matches c against the character class at the start of p (just
// past the opening bracket) and returns the pattern remaining after the
// closing bracket.
func matchClass(p string, c byte) (bool, string) {
	negate := false
	if len(p) > 0 && p[0] == '^' {
		negate = true
		p = p[1:]
	}

	matched := false
	for len(p) > 0 && p[0] != ']' {
		switch {
		case p[0] == '\\' && len(p) >= 2:
			if p[1] == c {
				matched = true
			}
			p = p[2:]
		case len(p) >= 3 && p[1] == '-' && p[2] != ']':
			lo, hi := p[0], p[2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if c >= lo && c <= hi {
				matched = true
			}
			p = p[3:]
		default:
			if p[0] == c {
				matched = true
			}
			p = p[1:]
		}
	}

	if len(p) > 0 {
		p = p[1:]
	}

	if negate {
		matched = !matched
	}
	return matched, p
}
