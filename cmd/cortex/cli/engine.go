package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/haasonsaas/cortex/internal/agent"
	"github.com/haasonsaas/cortex/internal/agent/providers"
	"github.com/haasonsaas/cortex/internal/agent/tape"
	"github.com/haasonsaas/cortex/internal/config"
	"github.com/haasonsaas/cortex/internal/doomloop"
	"github.com/haasonsaas/cortex/internal/hooks"
	"github.com/haasonsaas/cortex/internal/jobs"
	"github.com/haasonsaas/cortex/internal/multiagent"
	"github.com/haasonsaas/cortex/internal/permission"
	"github.com/haasonsaas/cortex/internal/sessions"
	"github.com/haasonsaas/cortex/internal/snapshot"
	"github.com/haasonsaas/cortex/internal/tools/exec"
	"github.com/haasonsaas/cortex/internal/tools/files"
	jobtools "github.com/haasonsaas/cortex/internal/tools/jobs"
	"github.com/haasonsaas/cortex/internal/tools/subagent"
	"github.com/haasonsaas/cortex/internal/tools/todo"
	"github.com/haasonsaas/cortex/internal/tools/websearch"
	"github.com/haasonsaas/cortex/pkg/models"
)

// cortexHome resolves CORTEX_HOME, defaulting to ~/.cortex.
func cortexHome() string {
	if home := os.Getenv("CORTEX_HOME"); home != "" {
		return home
	}
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".cortex")
	}
	return ".cortex"
}

// Engine bundles the wired runtime with the components the CLI surfaces
// directly (checkpoints for /undo, the recorder for tape dumps).
type Engine struct {
	Runtime   *agent.Runtime
	Session   *models.Session
	Snapshots *snapshot.Manager
	SubAgents *subagent.Manager
	Collab    *multiagent.Orchestrator
	Recorder  *tape.Recorder

	tapePath string
}

// Close flushes the session tape (when recording) and releases the
// engine's persistent resources.
func (e *Engine) Close() error {
	if e.Recorder != nil && e.tapePath != "" {
		if data, err := e.Recorder.Tape().Marshal(); err == nil {
			if err := os.WriteFile(e.tapePath, data, 0o644); err != nil {
				slog.Default().Warn("write session tape failed", "path", e.tapePath, "error", err)
			}
		}
	}
	if e.Snapshots != nil {
		return e.Snapshots.Close()
	}
	return nil
}

// buildEngine wires the turn runtime together with the tool registry, the
// permission store, the doom-loop detector, the hook engine, the snapshot
// ledger, and the sub-agent manager.
func buildEngine(flags *GlobalFlags) (*Engine, error) {
	logger := slog.Default()

	if err := os.MkdirAll(cortexHome(), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", cortexHome(), err)
	}

	// Optional config file; env vars and flags win over it.
	var cfg *config.Config
	cfgPath := filepath.Join(cortexHome(), "config.yaml")
	if _, statErr := os.Stat(cfgPath); statErr == nil {
		loaded, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			return nil, fmt.Errorf("load %s: %w", cfgPath, loadErr)
		}
		cfg = loaded
	}

	apiKey := os.Getenv("CORTEX_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" && cfg != nil {
		if pc, ok := cfg.LLM.Providers["anthropic"]; ok {
			apiKey = pc.APIKey
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("CORTEX_API_KEY (or ANTHROPIC_API_KEY) must be set")
	}

	var provider agent.LLMProvider
	provider, err := providers.NewAnthropicProvider(providers.AnthropicConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("construct LLM provider: %w", err)
	}

	// CORTEX_TAPE names a file; when set, the provider is wrapped in a
	// recorder and the session tape is written there on shutdown.
	var recorder *tape.Recorder
	tapePath := os.Getenv("CORTEX_TAPE")
	if tapePath != "" {
		recorder = tape.NewRecorder(provider)
		provider = recorder
	}

	store := sessions.NewMemoryStore()

	permStore, err := permission.NewStore(filepath.Join(cortexHome(), "permissions.json"), logger)
	if err != nil {
		return nil, fmt.Errorf("open permission store: %w", err)
	}
	if flags.Yes {
		// --yes bypasses all prompts for this invocation: the run/exec
		// commands install a pass-through ApprovalChecker instead of
		// pre-seeding per-tool allows.
		logger.Debug("--yes: permission prompts bypassed for this invocation")
	}

	doom := doomloop.New(doomloop.DefaultConfig(), logger)

	hookRegistry := hooks.NewRegistry(logger)
	toolHooks := hooks.NewToolHookManager(hookRegistry, logger)
	if cmd := os.Getenv("CORTEX_PRE_TOOL_HOOK"); cmd != "" {
		toolHooks.RegisterPreHook("env:pre-tool", hooks.NewShellPreHook(cmd, logger))
	}
	if cmd := os.Getenv("CORTEX_POST_TOOL_HOOK"); cmd != "" {
		toolHooks.RegisterPostHook("env:post-tool", hooks.NewShellPostHook(cmd, logger))
	}

	cwd := flags.Cwd
	if cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			cwd = wd
		} else {
			cwd = "."
		}
	}

	snapCfg := snapshot.DefaultConfig(cwd)
	snapCfg.BlobDir = filepath.Join(cortexHome(), "snapshots")
	snapCfg.IndexPath = filepath.Join(cortexHome(), "snapshots.db")
	snapshots, err := snapshot.New(context.Background(), snapCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open snapshot ledger: %w", err)
	}

	jobStore := jobs.NewMemoryStore()

	opts := agent.DefaultRuntimeOptions()
	opts.Logger = logger
	opts.PermissionStore = permStore
	opts.DoomLoop = doom
	opts.ToolHooks = toolHooks
	opts.JobStore = jobStore
	if flags.Yes {
		opts.ApprovalChecker = passThroughApprovalChecker()
	}

	runtime := agent.NewRuntimeWithOptions(provider, store, opts)
	if flags.Temperature > 0 {
		runtime.SetDefaultTemperature(flags.Temperature)
	}
	switch {
	case flags.Model != "":
		runtime.SetDefaultModel(flags.Model)
	case cfg != nil:
		if pc, ok := cfg.LLM.Providers["anthropic"]; ok && pc.DefaultModel != "" {
			runtime.SetDefaultModel(pc.DefaultModel)
		}
	}

	fileCfg := files.Config{Workspace: cwd, MaxReadBytes: 10 * 1024 * 1024}
	runtime.RegisterTool(files.NewReadTool(fileCfg))
	runtime.RegisterTool(files.NewPatchTool(fileCfg))
	runtime.RegisterTool(files.NewApplyPatchTool(fileCfg))
	runtime.RegisterTool(files.NewGrepTool(fileCfg))
	runtime.RegisterTool(files.NewGlobTool(fileCfg))

	execManager := exec.NewManager(cwd)
	runtime.RegisterTool(exec.NewExecTool("execute", execManager))

	runtime.RegisterTool(websearch.NewWebFetchTool(nil))

	todoList := todo.NewList()
	runtime.RegisterTool(todo.NewWriteTool(todoList))
	runtime.RegisterTool(todo.NewReadTool(todoList))

	runtime.RegisterTool(jobtools.NewStatusTool(jobStore))
	runtime.RegisterTool(jobtools.NewListTool(jobStore))
	runtime.RegisterTool(jobtools.NewCancelTool(jobStore))

	subAgents := subagent.NewManager(runtime, 5)
	subagent.RegisterTools(runtime, subAgents, subagent.NewAnnounceQueue())

	collab := multiagent.NewOrchestrator(nil, provider, store)
	for _, def := range defaultCollabAgents() {
		if regErr := collab.RegisterAgent(def); regErr != nil {
			return nil, fmt.Errorf("register collab agent %s: %w", def.ID, regErr)
		}
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		AgentID:   "cortex",
		Channel:   models.ChannelCLI,
		ChannelID: "local",
		Key:       "cli",
	}

	return &Engine{
		Runtime:   runtime,
		Session:   session,
		Snapshots: snapshots,
		SubAgents: subAgents,
		Collab:    collab,
		Recorder:  recorder,
		tapePath:  tapePath,
	}, nil
}

// defaultCollabAgents returns the built-in collab roles a session can
// @mention.
func defaultCollabAgents() []*multiagent.AgentDefinition {
	return []*multiagent.AgentDefinition{
		{
			ID:           "general",
			Name:         "general",
			Description:  "General-purpose assistant for everyday coding tasks.",
			SystemPrompt: "You are a capable general-purpose coding assistant.",
		},
		{
			ID:           "explore",
			Name:         "explore",
			Description:  "Explores a codebase: finds files, symbols, and usages.",
			SystemPrompt: "You explore codebases. Prefer read-only tools; report findings concisely.",
		},
		{
			ID:           "research",
			Name:         "research",
			Description:  "Researches external documentation and references.",
			SystemPrompt: "You research external sources and summarize what matters, with links.",
		},
	}
}

// passThroughApprovalChecker returns an ApprovalChecker whose policy allows
// everything: the concrete form of --yes's "treat all Ask as Allow" rule.
func passThroughApprovalChecker() *agent.ApprovalChecker {
	return agent.NewApprovalChecker(&agent.ApprovalPolicy{
		Allowlist:       []string{"*"},
		DefaultDecision: agent.ApprovalAllowed,
	})
}
