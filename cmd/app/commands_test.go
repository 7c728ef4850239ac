package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/starford/devspace/internal/models"
	"github.com/starford/devspace/internal/testutil"
)

func TestWriteExportEndsWithSingleNewline(t *testing.T) {
	store := testutil.NewStore(t)
	store.AddProject(models.Project{Name: "Site", Client: "Acme"})

	var buf bytes.Buffer
	if err := writeExport(&buf, store); err != nil {
		t.Fatalf("writeExport: %v", err)
	}
	out := buf.String()
	if !strings.HasSuffix(out, "}\n") || strings.HasSuffix(out, "\n\n") {
		t.Fatalf("export should end with exactly one newline, got tail %q", out[len(out)-3:])
	}

	var doc models.Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if len(doc.Projects) != 1 {
		t.Fatalf("projects = %+v", doc.Projects)
	}
}

func TestReadInputRequiresPath(t *testing.T) {
	if _, err := readInput(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
