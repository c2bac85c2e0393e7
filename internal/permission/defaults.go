package permission

// DefaultAllowPatterns are read-only commands that run without prompting.
var DefaultAllowPatterns = []string{
	"ls*", "cat *", "pwd", "echo *", "git status*", "git diff*", "git log*",
	"git show*", "git branch", "grep *", "rg *", "find *", "head *", "tail *",
	"wc *", "which *", "env", "date", "whoami",
}

// DefaultAskPatterns are mutating commands that prompt unless already
// granted.
var DefaultAskPatterns = []string{
	"cargo *", "npm *", "npx *", "yarn *", "pnpm *", "go build*", "go test*",
	"go run*", "git push*", "git commit*", "git merge*", "git rebase*",
	"git reset*", "docker *", "make *", "pip install*", "brew install*",
}

// DefaultDenyPatterns are commands considered dangerous enough to refuse
// outright regardless of any Ask/Allow match with a worse specificity.
var DefaultDenyPatterns = []string{
	"rm -rf /*", "rm -rf ~*", "rm -rf .*", "sudo rm -rf*", "chmod 777*",
	"curl * | bash*", "curl * | sh*", "wget * | bash*", "dd if=* of=/dev/*",
	"mkfs*", ":(){ :|:& };:*",
}

func seedDefaults() []Permission {
	perms := make([]Permission, 0, len(DefaultAllowPatterns)+len(DefaultAskPatterns)+len(DefaultDenyPatterns))
	for _, p := range DefaultAllowPatterns {
		perms = append(perms, Permission{Tool: "bash", Pattern: p, Response: ResponseAllow, Scope: ScopeAlways, Reason: "default allow-list"})
	}
	for _, p := range DefaultDenyPatterns {
		perms = append(perms, Permission{Tool: "bash", Pattern: p, Response: ResponseDeny, Scope: ScopeAlways, Reason: "default deny-list"})
	}
	// Ask-list entries are intentionally not recorded as permissions: an
	// absent match already resolves to Ask, and recording them here would
	// let their wildcard count compete with (and potentially beat) a more
	// specific allow/deny rule.
	_ = DefaultAskPatterns
	return perms
}
