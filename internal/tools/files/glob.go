package files

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/haasonsaas/cortex/internal/agent"
)

// GlobTool expands glob patterns against the workspace.
type GlobTool struct {
	resolver Resolver
	maxFiles int
}

// NewGlobTool creates a glob tool scoped to the workspace.
func NewGlobTool(cfg Config) *GlobTool {
	return &GlobTool{
		resolver: Resolver{Root: cfg.Workspace},
		maxFiles: 2000,
	}
}

// Name returns the tool name.
func (t *GlobTool) Name() string {
	return "glob"
}

// Description returns the tool description.
func (t *GlobTool) Description() string {
	return "Expand glob patterns (including **) against the workspace and return matching files."
}

// Schema returns the JSON schema for the tool parameters.
func (t *GlobTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"patterns": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Glob patterns relative to the workspace, e.g. **/*.go.",
			},
		},
		"required": []string{"patterns"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute expands the patterns.
func (t *GlobTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Patterns []string `json:"patterns"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if len(input.Patterns) == 0 {
		return toolError("patterns is required"), nil
	}

	root, err := t.resolver.Resolve(".")
	if err != nil {
		return toolError(err.Error()), nil
	}

	seen := map[string]struct{}{}
	var matches []string
	truncated := false

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if name := d.Name(); name == ".git" || name == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range input.Patterns {
			if matchGlob(pattern, rel) {
				if _, dup := seen[rel]; !dup {
					seen[rel] = struct{}{}
					matches = append(matches, rel)
				}
				break
			}
		}
		if len(matches) >= t.maxFiles {
			truncated = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && err != context.Canceled {
		return toolError(fmt.Sprintf("walk: %v", err)), nil
	}

	sort.Strings(matches)

	result := map[string]interface{}{
		"files":     matches,
		"count":     len(matches),
		"truncated": truncated,
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}

// matchGlob matches rel against pattern, treating a ** segment as zero or
// more path segments (path.Match alone stops at separators).
func matchGlob(pattern, rel string) bool {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	if !strings.Contains(pattern, "**") {
		ok, err := path.Match(pattern, rel)
		return err == nil && ok
	}
	return matchSegments(strings.Split(pattern, "/"), strings.Split(rel, "/"))
}

func matchSegments(pattern, rel []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(rel); i++ {
				if matchSegments(pattern[1:], rel[i:]) {
					return true
				}
			}
			return false
		}
		if len(rel) == 0 {
			return false
		}
		if ok, err := path.Match(pattern[0], rel[0]); err != nil || !ok {
			return false
		}
		pattern, rel = pattern[1:], rel[1:]
	}
	return len(rel) == 0
}
