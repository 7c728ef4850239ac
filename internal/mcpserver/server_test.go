package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/devspace/internal/datastore"
	"github.com/starford/devspace/internal/models"
	"github.com/starford/devspace/internal/testutil"
)

func testServer(t *testing.T) (*Server, *datastore.Store) {
	t.Helper()

	store := testutil.NewStore(t)
	return New(store, testutil.NewBackups(t, store)), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_projects":        srv.listProjects,
		"get_project":          srv.getProject,
		"add_project":          srv.addProject,
		"list_tasks":           srv.listTasks,
		"add_task":             srv.addTask,
		"update_task_status":   srv.updateTaskStatus,
		"add_payment":          srv.addPayment,
		"get_statistics":       srv.getStatistics,
		"validate_data":        srv.validateData,
		"fix_orphaned_records": srv.fixOrphanedRecords,
		"export_data":          srv.exportData,
		"import_data":          srv.importData,
		"create_backup":        srv.createBackup,
		"get_data_contract":    srv.getDataContract,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
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

func TestAddAndListProjects(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "add_project", map[string]interface{}{
		"name":   "Site",
		"client": "Acme",
		"budget": 1500.0,
	})
	if r.IsError {
		t.Fatalf("add_project failed: %s", resultText(r))
	}
	var p models.Project
	if err := json.Unmarshal([]byte(resultText(r)), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Status != models.ProjectPlanning || p.Budget != 1500 {
		t.Errorf("project = %+v", p)
	}

	r = callTool(t, srv, "list_projects", map[string]interface{}{"status": "Completed"})
	if text := resultText(r); text != "[]" {
		t.Errorf("filtered list = %q, want []", text)
	}
	r = callTool(t, srv, "list_projects", map[string]interface{}{})
	if !strings.Contains(resultText(r), `"name": "Site"`) {
		t.Errorf("list = %q", resultText(r))
	}
}

func TestAddProjectInvalid(t *testing.T) {
	srv, store := testServer(t)
	r := callTool(t, srv, "add_project", map[string]interface{}{"name": "Site"})
	if !r.IsError {
		t.Error("expected error for missing client")
	}
	if len(store.ListProjects()) != 0 {
		t.Error("invalid project stored")
	}
}

func TestTaskTools(t *testing.T) {
	srv, store := testServer(t)
	p := store.AddProject(models.Project{Name: "Site", Client: "Acme"})

	r := callTool(t, srv, "add_task", map[string]interface{}{"name": "Build", "projectId": p.ID})
	if r.IsError {
		t.Fatalf("add_task failed: %s", resultText(r))
	}
	var task models.Task
	_ = json.Unmarshal([]byte(resultText(r)), &task)

	r = callTool(t, srv, "update_task_status", map[string]interface{}{"id": task.ID, "status": "Done"})
	if r.IsError {
		t.Fatalf("update_task_status failed: %s", resultText(r))
	}
	if got, _ := store.GetTask(task.ID); got.CompletedAt == nil {
		t.Error("completedAt not stamped")
	}

	r = callTool(t, srv, "update_task_status", map[string]interface{}{"id": task.ID, "status": "Later"})
	if !r.IsError {
		t.Error("expected error for invalid status")
	}
	r = callTool(t, srv, "update_task_status", map[string]interface{}{"id": "ghost", "status": "Todo"})
	if !r.IsError {
		t.Error("expected error for missing task")
	}
	r = callTool(t, srv, "add_task", map[string]interface{}{"name": "Stray", "projectId": "ghost"})
	if !r.IsError {
		t.Error("expected error for unknown project")
	}

	r = callTool(t, srv, "get_project", map[string]interface{}{"id": p.ID})
	var detail projectDetail
	if err := json.Unmarshal([]byte(resultText(r)), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(detail.Tasks) != 1 || detail.Tasks[0].Status != models.TaskDone {
		t.Errorf("detail = %+v", detail)
	}
}

func TestAddPayment(t *testing.T) {
	srv, store := testServer(t)
	r := callTool(t, srv, "add_payment", map[string]interface{}{"description": "Deposit", "amount": 200.0, "status": "Paid"})
	if r.IsError {
		t.Fatalf("add_payment failed: %s", resultText(r))
	}
	if ps := store.ListPayments(""); len(ps) != 1 || ps[0].PaidAt == nil {
		t.Errorf("payments = %+v", ps)
	}
	r = callTool(t, srv, "add_payment", map[string]interface{}{"description": "Nothing", "amount": 0.0})
	if !r.IsError {
		t.Error("expected error for zero amount")
	}
}

func TestIntegrityTools(t *testing.T) {
	srv, store := testServer(t)
	ghost := "ghost"
	store.AddTask(models.Task{Name: "Orphan", ProjectID: &ghost})

	r := callTool(t, srv, "validate_data", map[string]interface{}{})
	if !strings.Contains(resultText(r), `"valid": false`) {
		t.Errorf("validate = %s", resultText(r))
	}
	r = callTool(t, srv, "fix_orphaned_records", map[string]interface{}{})
	if !strings.Contains(resultText(r), `"fixed": 1`) {
		t.Errorf("fix = %s", resultText(r))
	}
	if !store.Validate().Valid {
		t.Error("store still invalid after fix")
	}
}

func TestStatistics(t *testing.T) {
	srv, store := testServer(t)
	store.AddTask(models.Task{Name: "Done", Status: models.TaskDone})
	r := callTool(t, srv, "get_statistics", map[string]interface{}{})
	if !strings.Contains(resultText(r), `"completionRate": "100.0"`) {
		t.Errorf("stats = %s", resultText(r))
	}
}

func TestExportImportDataURI(t *testing.T) {
	srv, store := testServer(t)
	store.AddProject(models.Project{Name: "Site", Client: "Acme"})

	exported := resultText(callTool(t, srv, "export_data", map[string]interface{}{}))
	store.Reset()

	uri := "data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(exported))
	r := callTool(t, srv, "import_data", map[string]interface{}{"url": uri})
	if r.IsError {
		t.Fatalf("import_data failed: %s", resultText(r))
	}
	if len(store.ListProjects()) != 1 {
		t.Error("import did not restore the project")
	}
}

func TestImportDataRejects(t *testing.T) {
	srv, store := testServer(t)
	store.AddProject(models.Project{Name: "Keep", Client: "Me"})

	for _, url := range []string{
		"data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(`{"projects":[]}`)),
		"data:image/png;base64,AAAA",
		"data:application/json,{}",
		"ftp://example.com/export.json",
		"http://127.0.0.1/export.json",
	} {
		if r := callTool(t, srv, "import_data", map[string]interface{}{"url": url}); !r.IsError {
			t.Errorf("import %q should fail", url)
		}
	}
	if len(store.ListProjects()) != 1 {
		t.Error("rejected imports changed the document")
	}
}

func TestCreateBackup(t *testing.T) {
	srv, store := testServer(t)
	r := callTool(t, srv, "create_backup", map[string]interface{}{})
	if r.IsError || resultText(r) != "backup written: devspace-backup-2024-07-04.json" {
		t.Fatalf("create_backup = %q", resultText(r))
	}
	if store.Export().Metadata.LastBackup == nil {
		t.Error("lastBackup not stamped")
	}
}

func TestDataContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_data_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "All four collections are required") {
		t.Error("contract text missing")
	}
}

func TestCheckBlockedHost(t *testing.T) {
	for _, host := range []string{"localhost", "127.0.0.1", "::1", "0.0.0.0", "169.254.169.254", "metadata.google.internal", ""} {
		if err := checkBlockedHost(host); err == nil {
			t.Errorf("checkBlockedHost(%q) allowed", host)
		}
	}
	if err := checkBlockedHost("203.0.113.7"); err != nil {
		t.Errorf("public address blocked: %v", err)
	}
}

func TestDecodeDataURITooLarge(t *testing.T) {
	big := strings.Repeat("A", (maxImportSize/3+2)*4)
	if _, err := decodeDataURI("application/json;base64," + big); err == nil {
		t.Error("oversized data URI accepted")
	}
}
