package sandbox

import (
	"os/exec"
	"runtime"
	"strings"
)

// shellMetachars is the fixed set of characters whose presence in a
// single-string command means it must be interpreted by a shell rather than
// executed directly.
const shellMetachars = "&|;><$`(){}*?[]~!#"

// bashSyntax lists constructs /bin/sh (dash on Debian-family systems) does
// not understand. A command containing any of them is routed to bash when
// one is installed.
var bashSyntax = []string{
	"[[",
	"<(",
	">(",
	"source ",
	"**",
	"+=",
}

// ContainsMetachar reports whether s contains any shell metacharacter.
func ContainsMetachar(s string) bool {
	return strings.ContainsAny(s, shellMetachars)
}

// NeedsShell reports whether argv must be run through a shell. A
// multi-element argv is always executed directly: each element is a single
// token, so metacharacters inside one are literal data. Only a lone command
// string containing metacharacters needs shell interpretation.
func NeedsShell(argv []string) bool {
	return len(argv) == 1 && ContainsMetachar(argv[0])
}

// needsBash reports whether the command string uses bash-specific syntax.
func needsBash(command string) bool {
	for _, marker := range bashSyntax {
		if strings.Contains(command, marker) {
			return true
		}
	}
	return false
}

// shellFor picks the interpreter for a command string: cmd.exe on Windows,
// bash for bash-specific syntax when available, /bin/sh otherwise.
func shellFor(command string) (name string, flag string) {
	if runtime.GOOS == "windows" {
		return "cmd.exe", "/C"
	}
	if needsBash(command) {
		if bash, err := exec.LookPath("bash"); err == nil {
			return bash, "-c"
		}
	}
	return "/bin/sh", "-c"
}

// QuotePOSIX wraps s in single quotes, escaping embedded single quotes so
// the result is safe to splice into a shell command line.
func QuotePOSIX(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// JoinPOSIX renders argv as a single shell-safe command line.
func JoinPOSIX(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = QuotePOSIX(arg)
	}
	return strings.Join(quoted, " ")
}

// Command is a resolved invocation: the program plus its argument vector,
// ready for exec.
type Command struct {
	Path string
	Args []string

	// ViaShell records whether the invocation was routed through a shell.
	ViaShell bool
}

// BuildCommand resolves argv into a concrete invocation. A single string
// with metacharacters goes through a shell (bash when the string needs it);
// everything else execs directly.
func BuildCommand(argv []string) Command {
	if NeedsShell(argv) {
		shell, flag := shellFor(argv[0])
		return Command{
			Path:     shell,
			Args:     []string{flag, argv[0]},
			ViaShell: true,
		}
	}
	return Command{Path: argv[0], Args: argv[1:]}
}
