package migrate

import (
	"testing"

	"github.com/zentriztech/zentriz-genesis/internal/db"
)

func TestMigrateFreshAndRepeat(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate fresh: %v", err)
	}
	for _, table := range []string{"plans", "tenants", "users", "projects", "project_spec_files", "project_dialogue", "project_tasks", "notifications"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing after migrate: %v", table, err)
		}
	}

	steps, err := readSteps()
	if err != nil {
		t.Fatalf("read steps: %v", err)
	}
	if len(steps) == 0 {
		t.Fatal("no schema steps embedded")
	}
	want := steps[len(steps)-1].version

	v, err := storedVersion(conn)
	if err != nil {
		t.Fatalf("stored version: %v", err)
	}
	if v != want {
		t.Fatalf("stored version = %d, want %d", v, want)
	}

	// already applied steps are skipped
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate repeat: %v", err)
	}
	v, err = storedVersion(conn)
	if err != nil {
		t.Fatalf("stored version after repeat: %v", err)
	}
	if v != want {
		t.Fatalf("stored version after repeat = %d, want %d", v, want)
	}
}
