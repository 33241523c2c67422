package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SnapshotSource gives tool handlers access to the current analysis.
type SnapshotSource interface {
	WithSnapshot(fn func(*Snapshot) error) error
}

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// SearchResponse is the result of autogen_search.
type SearchResponse struct {
	Query   string       `json:"query"`
	Results []*SearchHit `json:"results"`
	Total   int          `json:"total"`
}

// ConstantResponse is the result of autogen_constant.
type ConstantResponse struct {
	Name        string           `json:"name"`
	Definitions []DefinitionInfo `json:"definitions"`
	References  []ReferenceInfo  `json:"references"`
}

// DependencyResponse is the result of autogen_dependencies. Only the fields
// of the requested operation are set.
type DependencyResponse struct {
	Operation string      `json:"operation"`
	File      string      `json:"file,omitempty"`
	Results   []FileDepth `json:"results,omitempty"`
	Groups    [][]string  `json:"groups,omitempty"`
}

// FileDepth is a file reached by a traversal.
type FileDepth struct {
	File  string `json:"file"`
	Depth int    `json:"depth"`
}

// AddSearchTool registers the autogen_search tool.
func AddSearchTool(s *server.MCPServer, source SnapshotSource) {
	tool := mcp.NewTool(
		"autogen_search",
		mcp.WithDescription("Search Ruby constant definitions (modules, classes, constant assignments and aliases) by name. Supports bleve query string syntax: terms, wildcards (Foo*), fuzzy (Fo~1) and boolean operators."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query over qualified constant names (e.g. 'User', 'Billing*')")),
		mcp.WithString("kind",
			mcp.Description("Only return definitions of this kind: module, class, casgn or alias")),
		mcp.WithString("file_path",
			mcp.Description("Wildcard pattern the defining file must match (e.g. 'app/models/*')")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (1-100, default: 15)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createSearchHandler(source))
}

func createSearchHandler(source SnapshotSource) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		queryStr, ok := args["query"].(string)
		if !ok || queryStr == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}

		opts := &SearchOptions{Limit: 15}
		opts.Kind, _ = args["kind"].(string)
		opts.FilePath, _ = args["file_path"].(string)
		if limit, ok := args["limit"].(float64); ok {
			opts.Limit = int(limit)
		}
		if opts.Kind != "" && !slices.Contains([]string{"module", "class", "casgn", "alias"}, opts.Kind) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid kind: %s (must be one of: module, class, casgn, alias)", opts.Kind)), nil
		}

		var hits []*SearchHit
		err := source.WithSnapshot(func(snap *Snapshot) error {
			var err error
			hits, err = snap.Index.Search(ctx, queryStr, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}
		return jsonResult(SearchResponse{Query: queryStr, Results: hits, Total: len(hits)})
	}
}

// AddConstantTool registers the autogen_constant tool.
func AddConstantTool(s *server.MCPServer, source SnapshotSource) {
	tool := mcp.NewTool(
		"autogen_constant",
		mcp.WithDescription("Look up a fully qualified Ruby constant: where it is defined and every reference that resolves to it."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Fully qualified constant name (e.g. 'Foo::Bar' or '::Foo::Bar')")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createConstantHandler(source))
}

func createConstantHandler(source SnapshotSource) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		name, ok := args["name"].(string)
		if !ok || name == "" {
			return mcp.NewToolResultError("name parameter is required"), nil
		}

		resp := ConstantResponse{Name: name}
		err := source.WithSnapshot(func(snap *Snapshot) error {
			resp.Definitions = snap.Definitions(name)
			resp.References = snap.References(name)
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Definitions) == 0 && len(resp.References) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("constant not found: %s", name)), nil
		}
		return jsonResult(resp)
	}
}

// AddDependencyTool registers the autogen_dependencies tool.
func AddDependencyTool(s *server.MCPServer, source SnapshotSource) {
	tool := mcp.NewTool(
		"autogen_dependencies",
		mcp.WithDescription("Query file dependencies derived from constant references. Operations: dependencies (files a file needs), dependents (files needing a file), cycles (mutually dependent files), load_order (file groups in a valid load order)."),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("One of 'dependencies', 'dependents', 'cycles' or 'load_order'")),
		mcp.WithString("file",
			mcp.Description("Project-relative file path, required for dependencies and dependents")),
		mcp.WithNumber("depth",
			mcp.Description("Traversal depth (default: 1, max: 10)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createDependencyHandler(source))
}

func createDependencyHandler(source SnapshotSource) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		operation, _ := args["operation"].(string)
		file, _ := args["file"].(string)
		if file != "" {
			file = path.Clean(file)
		}
		depth := 1
		if d, ok := args["depth"].(float64); ok {
			depth = min(max(int(d), 1), 10)
		}

		resp := DependencyResponse{Operation: operation, File: file}
		var userErr string
		err := source.WithSnapshot(func(snap *Snapshot) error {
			switch operation {
			case "dependencies", "dependents":
				if file == "" {
					userErr = "file parameter is required for " + operation
					return nil
				}
				if !slices.Contains(snap.Deps.Files(), file) {
					userErr = "file not found: " + file
					return nil
				}
				results := snap.Deps.Dependencies(file, depth)
				if operation == "dependents" {
					results = snap.Deps.Dependents(file, depth)
				}
				for _, r := range results {
					resp.Results = append(resp.Results, FileDepth{File: r.File, Depth: r.Depth})
				}
				return nil
			case "cycles":
				var err error
				resp.Groups, err = snap.Deps.Cycles()
				return err
			case "load_order":
				var err error
				resp.Groups, err = snap.Deps.LoadOrder()
				return err
			default:
				userErr = fmt.Sprintf("invalid operation: %s (must be one of: dependencies, dependents, cycles, load_order)", operation)
				return nil
			}
		})
		if err != nil {
			return nil, fmt.Errorf("dependency query failed: %w", err)
		}
		if userErr != "" {
			return mcp.NewToolResultError(userErr), nil
		}
		return jsonResult(resp)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
