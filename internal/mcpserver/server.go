// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes devspace tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/devspace/internal/backup"
	"github.com/starford/devspace/internal/datastore"
	"github.com/starford/devspace/internal/models"
)

const contractURI = "devspace://data-format"

// Server wraps the MCP server with devspace tools.
type Server struct {
	mcp     *server.MCPServer
	store   *datastore.Store
	backups *backup.Service
}

func enumOf[T ~string](vals []T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}

// New creates a new MCP server with all devspace tools registered. backups
// may be nil, in which case the backup tool is not offered.
func New(store *datastore.Store, backups *backup.Service) *Server {
	s := &Server{store: store, backups: backups}

	s.mcp = server.NewMCPServer(
		"devspace",
		models.AppVersion,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List projects, optionally filtered by status."),
		mcp.WithString("status", mcp.Description("Only projects with this status"), mcp.Enum(enumOf(models.ProjectStatuses)...)),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("get_project",
		mcp.WithDescription("Read a project together with its tasks, schedule events and payments."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Project id")),
	), s.getProject)

	s.mcp.AddTool(mcp.NewTool("add_project",
		mcp.WithDescription("Create a project. Read the data contract first via get_data_contract."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("client", mcp.Required(), mcp.Description("Client name")),
		mcp.WithString("description", mcp.Description("Free text description")),
		mcp.WithNumber("budget", mcp.Description("Budget, zero or more")),
		mcp.WithString("status", mcp.Enum(enumOf(models.ProjectStatuses)...)),
		mcp.WithString("startDate", mcp.Description("ISO-8601 date")),
		mcp.WithString("endDate", mcp.Description("ISO-8601 date")),
	), s.addProject)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks, optionally for one project and/or one status."),
		mcp.WithString("projectId", mcp.Description("Only tasks of this project")),
		mcp.WithString("status", mcp.Enum(enumOf(models.TaskStatuses)...)),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Create a task, optionally attached to a project."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Task name")),
		mcp.WithString("projectId", mcp.Description("Owning project id")),
		mcp.WithString("description", mcp.Description("Free text description")),
		mcp.WithString("priority", mcp.Enum(enumOf(models.Priorities)...)),
		mcp.WithString("status", mcp.Enum(enumOf(models.TaskStatuses)...)),
		mcp.WithString("dueDate", mcp.Description("ISO-8601 date")),
		mcp.WithNumber("estimatedHours", mcp.Description("Estimated effort in hours")),
	), s.addTask)

	s.mcp.AddTool(mcp.NewTool("update_task_status",
		mcp.WithDescription("Move a task to a new status. Done stamps completedAt."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithString("status", mcp.Required(), mcp.Enum(enumOf(models.TaskStatuses)...)),
	), s.updateTaskStatus)

	s.mcp.AddTool(mcp.NewTool("add_payment",
		mcp.WithDescription("Record an invoice, payment, expense or refund."),
		mcp.WithString("description", mcp.Required(), mcp.Description("What the payment is for")),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Amount, greater than zero")),
		mcp.WithString("projectId", mcp.Description("Owning project id")),
		mcp.WithString("status", mcp.Enum(enumOf(models.PaymentStatuses)...)),
		mcp.WithString("type", mcp.Enum(enumOf(models.PaymentTypes)...)),
		mcp.WithString("dueDate", mcp.Description("ISO-8601 date")),
	), s.addPayment)

	s.mcp.AddTool(mcp.NewTool("get_statistics",
		mcp.WithDescription("Counts, completion rates, earnings and timestamps across all data."),
	), s.getStatistics)

	s.mcp.AddTool(mcp.NewTool("validate_data",
		mcp.WithDescription("Report records pointing at missing projects and invalid projects."),
	), s.validateData)

	s.mcp.AddTool(mcp.NewTool("fix_orphaned_records",
		mcp.WithDescription("Detach tasks, schedules and payments from projects that no longer exist."),
	), s.fixOrphanedRecords)

	s.mcp.AddTool(mcp.NewTool("export_data",
		mcp.WithDescription("Export the whole document as JSON."),
	), s.exportData)

	s.mcp.AddTool(mcp.NewTool("import_data",
		mcp.WithDescription("Replace all data with an exported document. The source is an "+
			"http(s) URL or a base64 data URI (data:application/json;base64,...). "+
			"Malformed documents are rejected and the current data is kept."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data URI of an export")),
	), s.importData)

	if backups != nil {
		s.mcp.AddTool(mcp.NewTool("create_backup",
			mcp.WithDescription("Write a dated backup of all data to the configured backup target."),
		), s.createBackup)
	}

	s.mcp.AddTool(mcp.NewTool("get_data_contract",
		mcp.WithDescription("Returns the devspace data format contract. "+
			"Call this before creating records or importing data."),
	), s.getDataContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Data Format Contract",
			mcp.WithResourceDescription("Structure and rules of the devspace document."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDataContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listProjects(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := models.ProjectStatus(req.GetString("status", ""))
	out := []models.Project{}
	for _, p := range s.store.ListProjects() {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	return jsonResult(out)
}

type projectDetail struct {
	Project   models.Project         `json:"project"`
	Tasks     []models.Task          `json:"tasks"`
	Schedules []models.ScheduleEvent `json:"schedules"`
	Payments  []models.Payment       `json:"payments"`
}

func (s *Server) getProject(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, ok := s.store.GetProject(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", id)), nil
	}
	return jsonResult(projectDetail{
		Project:   p,
		Tasks:     s.store.ListTasks(id),
		Schedules: s.store.ListSchedules(id),
		Payments:  s.store.ListPayments(id),
	})
}

func (s *Server) addProject(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := models.Project{
		Name:        req.GetString("name", ""),
		Client:      req.GetString("client", ""),
		Description: req.GetString("description", ""),
		Budget:      models.Number(req.GetFloat("budget", 0)),
		Status:      models.ProjectStatus(req.GetString("status", "")),
		StartDate:   req.GetString("startDate", ""),
		EndDate:     req.GetString("endDate", ""),
	}
	if err := p.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.store.AddProject(p))
}

func (s *Server) listTasks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := models.TaskStatus(req.GetString("status", ""))
	out := []models.Task{}
	for _, t := range s.store.ListTasks(req.GetString("projectId", "")) {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	return jsonResult(out)
}

func (s *Server) addTask(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t := models.Task{
		Name:           req.GetString("name", ""),
		Description:    req.GetString("description", ""),
		ProjectID:      models.Ref(req.GetString("projectId", "")),
		Priority:       models.Priority(req.GetString("priority", "")),
		Status:         models.TaskStatus(req.GetString("status", "")),
		DueDate:        req.GetString("dueDate", ""),
		EstimatedHours: models.Number(req.GetFloat("estimatedHours", 0)),
	}
	if err := t.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if pid := models.RefID(t.ProjectID); pid != "" {
		if _, ok := s.store.GetProject(pid); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", pid)), nil
		}
	}
	return jsonResult(s.store.AddTask(t))
}

func (s *Server) updateTaskStatus(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status := models.TaskStatus(raw)
	if !status.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid task status: %s", raw)), nil
	}
	t, err := s.store.UpdateTask(id, models.TaskPatch{Status: &status})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t)
}

func (s *Server) addPayment(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := models.Payment{
		Description: req.GetString("description", ""),
		Amount:      models.Number(req.GetFloat("amount", 0)),
		ProjectID:   models.Ref(req.GetString("projectId", "")),
		Status:      models.PaymentStatus(req.GetString("status", "")),
		Type:        models.PaymentType(req.GetString("type", "")),
		DueDate:     req.GetString("dueDate", ""),
	}
	if err := p.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.store.AddPayment(p))
}

func (s *Server) getStatistics(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.Statistics())
}

func (s *Server) validateData(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.Validate())
}

func (s *Server) fixOrphanedRecords(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.FixOrphanedRecords())
}

func (s *Server) exportData(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.store.ExportJSON()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createBackup(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := s.backups.Backup(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("backup written: %s", name)), nil
}

func (s *Server) getDataContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DataFormatContract), nil
}

func (s *Server) readDataContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     DataFormatContract,
		},
	}, nil
}
