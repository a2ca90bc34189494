package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/tabstat/internal/frame"
)

// SalesFrame is a small mixed-type dataset: a string group column, two
// correlated numeric columns, one with a null and one with a text cell.
func SalesFrame() *frame.DataFrame {
	return frame.MustNew(
		[]string{"region", "sales", "units", "comment"},
		map[string][]frame.Value{
			"region": frame.Strings("north", "south", "north", "east", "south", "north"),
			"sales": {
				frame.Number(100), frame.Number(200), frame.Number(150),
				frame.Number(300), frame.Null(), frame.Number(120),
			},
			"units": {
				frame.Number(10), frame.Number(21), frame.Number(14),
				frame.Number(29), frame.Number(25), frame.String("n/a"),
			},
			"comment": frame.Strings("ok", "", "late", "ok", "ok", "late"),
		},
	)
}

// WriteCSV writes lines to name inside a fresh temp dir and returns the path.
func WriteCSV(t testing.TB, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
