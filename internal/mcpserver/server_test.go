package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/atelier/internal/catalog"
	"github.com/starford/atelier/internal/schema"
	"github.com/starford/atelier/internal/studio"
	"github.com/starford/atelier/internal/testutil"
)

func testServer(t *testing.T) (*Server, *studio.Service) {
	t.Helper()
	store, dir, snap := testutil.TestProject(t)
	svc := studio.New(dir, store, snap,
		studio.WithLogger(testutil.QuietLogger()),
		studio.WithIndex(testutil.TestDB(t)),
		studio.WithAutosaveDelay(time.Hour))
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	svc.HandleCatalog(catalog.Event{Type: catalog.EventReady, Catalog: catalog.BuiltinResult()})
	return New(svc, "test"), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_catalog":
		result, err = srv.getCatalog(ctx, req)
	case "validate_dependencies":
		result, err = srv.validateDependencies(ctx, req)
	case "missing_blocks":
		result, err = srv.missingBlocks(ctx, req)
	case "normalize_page":
		result, err = srv.normalizePage(ctx, req)
	case "normalize_theme":
		result, err = srv.normalizeTheme(ctx, req)
	case "search_blocks":
		result, err = srv.searchBlocks(ctx, req)
	case "migrate_project":
		result, err = srv.migrateProject(ctx, req)
	case "get_project_contract":
		result, err = srv.getProjectContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGetCatalog(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_catalog", nil)
	var res catalog.Result
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Manifests) != len(catalog.Builtin()) {
		t.Errorf("catalog size = %d", len(res.Manifests))
	}
	if !strings.HasSuffix(resultText(r), "\n") {
		t.Error("expected canonical output with trailing newline")
	}
}

func TestValidateDependencies(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "validate_dependencies", map[string]any{})
	if text := strings.TrimSpace(resultText(r)); text != "[]" {
		t.Errorf("default allow-list result = %q, want []", text)
	}

	r = callTool(t, srv, "validate_dependencies", map[string]any{"allow": "react, vue"})
	var issues []catalog.DependencyIssue
	_ = json.Unmarshal([]byte(resultText(r)), &issues)
	if len(issues) == 0 {
		t.Fatal("expected not_allowed issues")
	}
	for _, i := range issues {
		if i.Kind != catalog.IssueNotAllowed {
			t.Errorf("kind = %s", i.Kind)
		}
	}
}

func TestMissingBlocks(t *testing.T) {
	srv, svc := testServer(t)
	snap, _ := svc.Project()
	snap.Pages[0].Blocks = []schema.BlockEntry{{BlockID: "ghost.v1"}}
	if _, err := svc.Update(snap); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "missing_blocks", nil)
	var missing []string
	_ = json.Unmarshal([]byte(resultText(r)), &missing)
	if len(missing) != 1 || missing[0] != "ghost.v1" {
		t.Errorf("missing = %v", missing)
	}
}

func TestNormalizePage(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "normalize_page", map[string]any{"pageId": "home"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"route": "/"`) {
		t.Errorf("page ir = %s", resultText(r))
	}

	r = callTool(t, srv, "normalize_page", map[string]any{"pageId": "nope"})
	if !r.IsError {
		t.Error("expected error for missing page")
	}

	r = callTool(t, srv, "normalize_page", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing pageId")
	}
}

func TestNormalizeTheme(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "normalize_theme", nil)
	if !strings.Contains(resultText(r), `"tokens"`) {
		t.Errorf("theme = %s", resultText(r))
	}
}

func TestSearchBlocks(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "search_blocks", map[string]any{"query": "banner", "limit": 5})
	if !strings.Contains(resultText(r), "cta.banner.v1") {
		t.Errorf("search = %s", resultText(r))
	}

	r = callTool(t, srv, "search_blocks", map[string]any{})
	if !r.IsError {
		t.Error("expected error without query")
	}
}

func TestMigrateProject_UpToDate(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "migrate_project", nil)
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"migrated": false`) {
		t.Errorf("result = %s", resultText(r))
	}
}

func TestProjectContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_project_contract", nil)
	if resultText(r) != ProjectContract {
		t.Error("contract mismatch")
	}

	contents, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != ContractURI {
		t.Errorf("resource = %+v", contents[0])
	}
}
