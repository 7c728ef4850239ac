// Package migrate upgrades documents written by older data versions.
package migrate

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/devspace/internal/models"
)

// Migration upgrades a document to Version. Apply may modify doc in place.
type Migration struct {
	Version string
	Apply   func(doc *models.Document) error
}

// Result describes a migration run.
type Result struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Applied []string `json:"applied"`
	// Failed is the version whose migration returned an error, if any.
	Failed string `json:"failed,omitempty"`
	Err    error  `json:"-"`
}

// Run applies, in version order, every migration newer than the document's
// version. Each migration runs on a copy; the first failure stops the run
// and the document keeps the migrations applied before it. The returned
// document is never the one passed in.
func Run(doc *models.Document, migrations []Migration, logger *slog.Logger) (*models.Document, Result) {
	current := doc.Clone()
	res := Result{From: current.Metadata.Version, To: current.Metadata.Version}

	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		if Compare(m.Version, res.From) > 0 {
			pending = append(pending, m)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return Compare(pending[i].Version, pending[j].Version) < 0
	})

	for _, m := range pending {
		next := current.Clone()
		if err := m.Apply(next); err != nil {
			logger.Error("migrate: failed",
				slog.String("version", m.Version),
				slog.String("error", err.Error()))
			res.Failed = m.Version
			res.Err = fmt.Errorf("migrate to %s: %w", m.Version, err)
			break
		}
		logger.Info("migrate: applied", slog.String("version", m.Version))
		next.Metadata.Version = m.Version
		current = next
		res.To = m.Version
		res.Applied = append(res.Applied, m.Version)
	}
	current.Normalize()
	return current, res
}

// Compare orders dotted numeric versions. Missing or non-numeric parts
// count as zero, so "" sorts before "1.0.0".
func Compare(a, b string) int {
	pa, pb := split(a), split(b)
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func split(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		out[i], _ = strconv.Atoi(p)
	}
	return out
}

// Default returns the migrations shipped with this build.
func Default() []Migration {
	return []Migration{
		{Version: "1.0.0", Apply: baseline},
	}
}

// baseline brings unversioned documents up to the first data version:
// tasks labelled by title get a name and records without a status get the
// default one.
func baseline(doc *models.Document) error {
	for i := range doc.Projects {
		if doc.Projects[i].Status == "" {
			doc.Projects[i].Status = models.ProjectPlanning
		}
	}
	for i := range doc.Tasks {
		t := &doc.Tasks[i]
		if t.Name == "" && t.Title != "" {
			t.Name = t.Title
		}
		t.Title = ""
		if t.Status == "" {
			t.Status = models.TaskTodo
		}
	}
	for i := range doc.Payments {
		if doc.Payments[i].Status == "" {
			doc.Payments[i].Status = models.PaymentPending
		}
	}
	return nil
}
