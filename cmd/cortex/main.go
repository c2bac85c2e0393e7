// Package main provides the CLI entry point for Cortex, an interactive
// coding assistant that orchestrates an LLM, a tool registry, a permission
// gate, and optional sub-agents around a single-turn-at-a-time runtime.
//
// This binary exposes only the core-relevant subset of the full Cortex CLI
// surface (config parsing, auth/login, and telemetry shipping live outside
// the orchestration core this repository implements):
//
//	cortex run [prompt...]   non-interactive turn(s), text in/out
//	cortex exec [prompt...]  alias of run
//	cortex                   interactive; requires a TTY
//
// Environment variables consumed: CORTEX_HOME, CORTEX_API_KEY (or
// ANTHROPIC_API_KEY), CORTEX_MODEL, CORTEX_TAPE, CORTEX_PRE_TOOL_HOOK,
// CORTEX_POST_TOOL_HOOK. Child processes additionally see CORTEX_SANDBOX.
package main

import (
	"fmt"
	"os"

	"github.com/haasonsaas/cortex/cmd/cortex/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		if exitErr, ok := cli.AsExitError(err); ok {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			return exitErr.Code
		}
		fmt.Fprintln(os.Stderr, "cortex:", err)
		return 1
	}
	return cli.LastExitCode()
}
