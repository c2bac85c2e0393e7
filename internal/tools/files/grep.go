package files

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/haasonsaas/cortex/internal/agent"
)

// GrepTool searches workspace files with a regular expression.
type GrepTool struct {
	resolver   Resolver
	maxMatches int
	maxFileLen int64
}

// NewGrepTool creates a grep tool scoped to the workspace.
func NewGrepTool(cfg Config) *GrepTool {
	return &GrepTool{
		resolver:   Resolver{Root: cfg.Workspace},
		maxMatches: 1000,
		maxFileLen: 10 * 1024 * 1024,
	}
}

// Name returns the tool name.
func (t *GrepTool) Name() string {
	return "grep"
}

// Description returns the tool description.
func (t *GrepTool) Description() string {
	return "Search file contents with a regular expression. Output modes: content, files, count."
}

// Schema returns the JSON schema for the tool parameters.
func (t *GrepTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Regular expression to search for.",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "File or directory to search (default: workspace root).",
			},
			"output_mode": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"content", "files", "count"},
				"description": "What to return: matching lines, file paths, or per-file counts.",
			},
			"line_numbers": map[string]interface{}{
				"type":        "boolean",
				"description": "Prefix matching lines with line numbers (content mode).",
			},
		},
		"required": []string{"pattern"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// Execute runs the search.
func (t *GrepTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Pattern     string `json:"pattern"`
		Path        string `json:"path"`
		OutputMode  string `json:"output_mode"`
		LineNumbers bool   `json:"line_numbers"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if input.Pattern == "" {
		return toolError("pattern is required"), nil
	}
	re, err := regexp.Compile(input.Pattern)
	if err != nil {
		return toolError(fmt.Sprintf("invalid regex: %v", err)), nil
	}

	mode := input.OutputMode
	if mode == "" {
		mode = "content"
	}
	switch mode {
	case "content", "files", "count":
	default:
		return toolError(fmt.Sprintf("unknown output_mode %q", mode)), nil
	}

	searchPath := input.Path
	if searchPath == "" {
		searchPath = "."
	}
	root, err := t.resolver.Resolve(searchPath)
	if err != nil {
		return toolError(err.Error()), nil
	}
	if _, err := os.Stat(root); err != nil {
		return toolError(fmt.Sprintf("path not found: %v", err)), nil
	}

	type fileHits struct {
		path  string
		lines []string
		count int
	}
	var hits []fileHits
	total := 0

	scan := func(path, display string) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		info, err := os.Stat(path)
		if err != nil || info.Size() > t.maxFileLen {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()

		fh := fileHits{path: display}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if !re.MatchString(line) {
				continue
			}
			fh.count++
			total++
			if mode == "content" && len(fh.lines) < t.maxMatches {
				if input.LineNumbers {
					fh.lines = append(fh.lines, fmt.Sprintf("%d:%s", lineNo, line))
				} else {
					fh.lines = append(fh.lines, line)
				}
			}
			if total >= t.maxMatches {
				break
			}
		}
		if fh.count > 0 {
			hits = append(hits, fh)
		}
		return nil
	}

	info, err := os.Stat(root)
	if err != nil {
		return toolError(fmt.Sprintf("path not found: %v", err)), nil
	}
	if info.IsDir() {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if name := d.Name(); name == ".git" || name == "node_modules" {
					return filepath.SkipDir
				}
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			if total >= t.maxMatches {
				return filepath.SkipAll
			}
			return scan(path, rel)
		})
	} else {
		err = scan(root, searchPath)
	}
	if err != nil && err != context.Canceled {
		return toolError(fmt.Sprintf("search: %v", err)), nil
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].path < hits[j].path })

	var out strings.Builder
	switch mode {
	case "files":
		for _, fh := range hits {
			fmt.Fprintln(&out, fh.path)
		}
	case "count":
		for _, fh := range hits {
			fmt.Fprintf(&out, "%s:%d\n", fh.path, fh.count)
		}
	default:
		for _, fh := range hits {
			for _, line := range fh.lines {
				fmt.Fprintf(&out, "%s:%s\n", fh.path, line)
			}
		}
	}

	result := map[string]interface{}{
		"pattern":     input.Pattern,
		"output_mode": mode,
		"matches":     total,
		"output":      out.String(),
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}
