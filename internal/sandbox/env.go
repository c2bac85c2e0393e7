package sandbox

import "strings"

// Environment variables that let a parent process inject code into a child
// via the dynamic linker or a language runtime. Removed unconditionally,
// regardless of policy.
var injectionPrefixes = []string{
	"LD_",
	"DYLD_",
	"PYTHON",
	"PERL5",
}

var injectionExact = []string{
	"NODE_OPTIONS",
	"RUBYOPT",
	"JAVA_TOOL_OPTIONS",
	"BASH_ENV",
	"ENV",
	"CDPATH",
	"GLOBIGNORE",
	"PROMPT_COMMAND",
	"LOCPATH",
}

// SanitizeEnv strips injection variables from env (key=value form), resets
// IFS, forces non-interactive markers, and stamps the sandbox level into
// CORTEX_SANDBOX so the child can tell it is confined. The input slice is
// not modified.
func SanitizeEnv(env []string, policy Policy) []string {
	out := make([]string, 0, len(env)+5)
	for _, kv := range env {
		key, _, ok := strings.Cut(kv, "=")
		if !ok || removedKey(key) {
			continue
		}
		switch key {
		case "IFS", "CI", "TERM", "NONINTERACTIVE", "CORTEX_SANDBOX":
			// Re-set below.
			continue
		}
		out = append(out, kv)
	}
	out = append(out,
		"IFS= \t\n",
		"CI=true",
		"TERM=dumb",
		"NONINTERACTIVE=1",
		"CORTEX_SANDBOX="+policy.Label(),
	)
	return out
}

func removedKey(key string) bool {
	for _, exact := range injectionExact {
		if key == exact {
			return true
		}
	}
	for _, prefix := range injectionPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
