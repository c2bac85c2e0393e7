package permission

import (
	"regexp"
	"strings"
	"sync"
)

// wildcardCount counts the `*` and `?` glob metacharacters in a pattern;
// fewer wildcards makes a pattern more specific.
func wildcardCount(pattern string) int {
	count := 0
	for _, r := range pattern {
		if r == '*' || r == '?' {
			count++
		}
	}
	return count
}

var (
	matchCacheMu sync.RWMutex
	matchCache   = map[string]*regexp.Regexp{}
)

// compileGlob turns a `*`/`?` glob pattern into an anchored regexp. Results
// are cached since the default pattern sets are looked up repeatedly.
func compileGlob(pattern string) *regexp.Regexp {
	matchCacheMu.RLock()
	if re, ok := matchCache[pattern]; ok {
		matchCacheMu.RUnlock()
		return re
	}
	matchCacheMu.RUnlock()

	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	re := regexp.MustCompile(b.String())

	matchCacheMu.Lock()
	matchCache[pattern] = re
	matchCacheMu.Unlock()
	return re
}

// matchesPattern reports whether candidate satisfies a `*`/`?` glob pattern.
func matchesPattern(pattern, candidate string) bool {
	return compileGlob(pattern).MatchString(candidate)
}

// bestMatch picks the winning pattern among every pattern in perms that
// matches candidate: fewest wildcards wins, ties keep the earlier (lower
// index) entry, matching insertion order.
func bestMatch(perms []Permission, candidate string) (Permission, bool) {
	best := -1
	bestWildcards := 0
	for i, p := range perms {
		if !matchesPattern(p.Pattern, candidate) {
			continue
		}
		wc := wildcardCount(p.Pattern)
		if best == -1 || wc < bestWildcards {
			best = i
			bestWildcards = wc
		}
	}
	if best == -1 {
		return Permission{}, false
	}
	return perms[best], true
}
