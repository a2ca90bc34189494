package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnalyzeBatch_OutputDirWithCollisions(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	// Prepare two CSV files with the same basename in different directories
	d1 := filepath.Join(home, "d1")
	d2 := filepath.Join(home, "d2")
	if err := os.MkdirAll(d1, 0o755); err != nil {
		t.Fatalf("mkdir d1: %v", err)
	}
	if err := os.MkdirAll(d2, 0o755); err != nil {
		t.Fatalf("mkdir d2: %v", err)
	}
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	if err := os.WriteFile(filepath.Join(d1, "metrics.csv"), []byte(csv), 0o644); err != nil {
		t.Fatalf("write p1: %v", err)
	}
	if err := os.WriteFile(filepath.Join(d2, "metrics.csv"), []byte(csv), 0o644); err != nil {
		t.Fatalf("write p2: %v", err)
	}

	outDir := filepath.Join(home, "reports-out")
	out := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"), "--output-dir", outDir)
	if !strings.Contains(out, "[1/2] Processing metrics.csv...") || !strings.Contains(out, "[2/2] Processing metrics.csv...") {
		t.Fatalf("missing progress lines:\n%s", out)
	}

	b1 := filepath.Join(outDir, "metrics.report.md")
	b2 := filepath.Join(outDir, "metrics__2.report.md")
	for _, p := range []string{b1, b2} {
		body, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("missing report %s: %v", p, err)
		}
		if !strings.Contains(string(body), "Rows: 3") {
			t.Fatalf("unexpected report body in %s:\n%s", p, body)
		}
	}
}

func TestAnalyzeBatch_KeepGoingAndQuiet(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	good := filepath.Join(home, "good.csv")
	if err := os.WriteFile(good, []byte("x\n1\n2\n3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(home, "gone.csv")

	// Without --keep-going the first failure aborts
	if _, err := execCmd(t, "analyze-batch", missing, good); err == nil {
		t.Fatalf("expected failure for missing file")
	}

	out, err := execCmd(t, "analyze-batch", good, missing, "--keep-going", "--save", "--quiet")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Fatalf("expected summary error, got %v", err)
	}
	if strings.Contains(out, "Processing") {
		t.Fatalf("quiet run printed progress:\n%s", out)
	}
	list := runCmd(t, "reports", "list")
	if !strings.Contains(list, "good.csv") {
		t.Fatalf("expected saved report for good.csv:\n%s", list)
	}
}

func TestAnalyzeBatch_NoMatches(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execCmd(t, "analyze-batch", filepath.Join(home, "*.txt")); err == nil {
		t.Fatalf("expected error when no supported files match")
	}
}
