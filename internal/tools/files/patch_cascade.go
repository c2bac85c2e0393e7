package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/haasonsaas/cortex/internal/agent"
)

// PatchTool performs a single targeted
// old_str/new_str replacement located via the cascade matcher (cascade.go),
// rather than ApplyPatchTool's unified-diff contract.
type PatchTool struct {
	resolver Resolver
}

// NewPatchTool creates a patch tool scoped to the workspace.
func NewPatchTool(cfg Config) *PatchTool {
	return &PatchTool{resolver: Resolver{Root: cfg.Workspace}}
}

func (t *PatchTool) Name() string { return "Patch" }

func (t *PatchTool) Description() string {
	return "Replace old_str with new_str in a workspace file, locating the target via a fallback " +
		"cascade of matching strategies (exact, line-trimmed, block-anchor, whitespace-normalized, " +
		"context-aware) so minor drift in whitespace or surrounding context doesn't fail the match."
}

func (t *PatchTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"file_path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to patch (relative to workspace).",
			},
			"old_str": map[string]interface{}{
				"type":        "string",
				"description": "Text to locate and replace.",
			},
			"new_str": map[string]interface{}{
				"type":        "string",
				"description": "Replacement text.",
			},
			"change_all": map[string]interface{}{
				"type":        "boolean",
				"description": "Replace every match instead of requiring exactly one (default: false).",
			},
		},
		"required": []string{"file_path", "old_str", "new_str"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute resolves the file, runs the cascade matcher, and rewrites the
// file atomically (write to a sibling temp file, then rename).
func (t *PatchTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var input struct {
		FilePath  string `json:"file_path"`
		OldStr    string `json:"old_str"`
		NewStr    string `json:"new_str"`
		ChangeAll bool   `json:"change_all"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.FilePath) == "" {
		return toolError("file_path is required"), nil
	}
	if input.OldStr == input.NewStr {
		return toolError("old_str and new_str must differ"), nil
	}

	resolved, err := t.resolver.Resolve(input.FilePath)
	if err != nil {
		return toolError(err.Error()), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return toolError(fmt.Sprintf("read file: %v", err)), nil
	}
	content := string(data)

	spans, err := cascadeMatch(content, input.OldStr)
	if err != nil {
		return patchToolError(err), nil
	}

	if len(spans) > 1 && !input.ChangeAll {
		return patchToolError(&PatchError{
			Kind: PatchErrMultipleMatches,
			Message: fmt.Sprintf(
				"old_str matches %d locations via %s strategy; pass change_all=true or narrow old_str",
				len(spans), spans[0].Strategy,
			),
		}), nil
	}

	targets := spans
	if !input.ChangeAll {
		targets = spans[:1]
	}

	updated, replaced := applySpans(content, targets, input.NewStr)

	tmp := resolved + ".cortex-patch.tmp"
	if err := os.WriteFile(tmp, []byte(updated), 0o644); err != nil {
		return toolError(fmt.Sprintf("write file: %v", err)), nil
	}
	if err := os.Rename(tmp, resolved); err != nil {
		_ = os.Remove(tmp)
		return toolError(fmt.Sprintf("write file: %v", err)), nil
	}

	result := map[string]interface{}{
		"path":         input.FilePath,
		"replacements": replaced,
		"strategy":     string(spans[0].Strategy),
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}

	return &agent.ToolResult{Content: string(payload)}, nil
}

// applySpans rewrites content, replacing each span (in document order) with
// replacement. Spans must be non-overlapping and sorted ascending by Start,
// which cascadeMatch's strategies all guarantee by construction.
func applySpans(content string, spans []matchSpan, replacement string) (string, int) {
	var b strings.Builder
	last := 0
	for _, s := range spans {
		b.WriteString(content[last:s.Start])
		b.WriteString(replacement)
		last = s.End
	}
	b.WriteString(content[last:])
	return b.String(), len(spans)
}

// patchToolError maps a typed PatchError onto the ToolResult is_error
// convention, naming the error kind in the message prefix so callers can
// branch on it without depending on exact wording.
func patchToolError(err error) *agent.ToolResult {
	pe, ok := err.(*PatchError)
	if !ok {
		return toolError(err.Error())
	}
	return toolError(fmt.Sprintf("%s: %s", pe.Kind, pe.Message))
}
