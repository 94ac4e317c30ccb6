package app

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"1-1.csv",
		"1-1_2.csv",
		"1-1_3.csv",
		"sub/2-4.csv",
		"notes.txt",
		"summary-1.csv",
	} {
		writeTestFile(t, filepath.Join(dir, name), "t,a\n")
	}

	files, err := discoverFiles(dir, 2)
	if err != nil {
		t.Fatalf("discoverFiles() error = %v", err)
	}

	var got []string
	for _, f := range files {
		got = append(got, f.Tag+":"+filepath.Base(f.Path))
	}
	want := []string{"1-1:1-1.csv", "1-1:1-1_2.csv", "2-4:2-4.csv"}
	if !slices.Equal(got, want) {
		t.Errorf("discoverFiles() = %v, want %v", got, want)
	}

	pipe, pos := files[2].pipePos()
	if pipe != "2" || pos != "4" {
		t.Errorf("pipePos() = (%s, %s), want (2, 4)", pipe, pos)
	}
}

func TestDiscoverFilesMissingDir(t *testing.T) {
	if _, err := discoverFiles(filepath.Join(t.TempDir(), "nope"), 2); err == nil {
		t.Error("discoverFiles() expected error for missing directory")
	}
}

func TestJoinLogs(t *testing.T) {
	allRuns := &csvTable{
		Columns: []string{"test_no", "sample", "frequency", "file_name"},
		Rows: [][]string{
			{"1", "s1", "50", "1-1"},
			{"2", "s2", "50", "1-2"},
			{"3", "s3", "60", "2-1"},
		},
	}
	samples := &csvTable{
		Columns: []string{"sample", "grade"},
		Rows: [][]string{
			{"s1", "good"},
			{"s3", "bad"},
		},
	}

	joined, err := joinLogs(allRuns, samples)
	if err != nil {
		t.Fatalf("joinLogs() error = %v", err)
	}

	wantColumns := []string{"test_no", "sample", "frequency", "file_tag", "grade"}
	if !slices.Equal(joined.Columns, wantColumns) {
		t.Errorf("joinLogs() columns = %v, want %v", joined.Columns, wantColumns)
	}
	if len(joined.Rows) != 2 {
		t.Fatalf("joinLogs() kept %d rows, want 2", len(joined.Rows))
	}
	if want := []string{"1", "s1", "50", "1-1", "good"}; !slices.Equal(joined.Rows[0], want) {
		t.Errorf("joinLogs() row 0 = %v, want %v", joined.Rows[0], want)
	}
}

func TestJoinLogsMissingColumns(t *testing.T) {
	good := &csvTable{Columns: []string{"sample", "file_name"}}
	if _, err := joinLogs(&csvTable{Columns: []string{"file_name"}}, good); err == nil {
		t.Error("joinLogs() expected error for run log without sample column")
	}
	if _, err := joinLogs(good, &csvTable{Columns: []string{"grade"}}); err == nil {
		t.Error("joinLogs() expected error for samples log without sample column")
	}
}

func TestBuildDescriptor(t *testing.T) {
	files := []dataFile{
		{Tag: "1-1", Path: "data/1-1.csv"},
		{Tag: "1-2", Path: "data/1-2.csv"},
	}

	t.Run("without run log", func(t *testing.T) {
		batch, err := buildDescriptor(files, nil)
		if err != nil {
			t.Fatalf("buildDescriptor() error = %v", err)
		}
		if want := []string{"file_name", "pipe", "pos"}; !slices.Equal(batch.Columns, want) {
			t.Errorf("columns = %v, want %v", batch.Columns, want)
		}
		if want := []string{"data/1-2.csv", "1", "2"}; !slices.Equal(batch.Rows[1], want) {
			t.Errorf("row 1 = %v, want %v", batch.Rows[1], want)
		}
	})

	t.Run("with run log", func(t *testing.T) {
		log := &csvTable{
			Columns: []string{"sample", "file_tag", "frequency"},
			Rows: [][]string{
				{"s1", "1-1", "50"},
			},
		}

		batch, err := buildDescriptor(files, log)
		if err != nil {
			t.Fatalf("buildDescriptor() error = %v", err)
		}
		if want := []string{"file_name", "pipe", "pos", "sample", "frequency"}; !slices.Equal(batch.Columns, want) {
			t.Errorf("columns = %v, want %v", batch.Columns, want)
		}
		if len(batch.Rows) != 1 {
			t.Fatalf("got %d rows, want 1 (files without log entries drop out)", len(batch.Rows))
		}
		if want := []string{"data/1-1.csv", "1", "1", "s1", "50"}; !slices.Equal(batch.Rows[0], want) {
			t.Errorf("row 0 = %v, want %v", batch.Rows[0], want)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeTestFile(t, path, strings.TrimSpace(`
settings:
  logLevel: debug
data:
  dir: ./data
analysis:
  jobs: 4
`))

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.Analysis.Harmonic != defaultHarmonic {
		t.Errorf("Harmonic = %d, want default %d", config.Analysis.Harmonic, defaultHarmonic)
	}
	if config.Analysis.Jobs != 4 {
		t.Errorf("Jobs = %d, want 4", config.Analysis.Jobs)
	}
	if config.Channels.Drive != "b" || config.Channels.Reference != "a" {
		t.Errorf("unexpected default channels: %+v", config.Channels)
	}
	if config.Output.Results != defaultResultsFile {
		t.Errorf("Results = %s, want default %s", config.Output.Results, defaultResultsFile)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing data dir", "settings:\n  logLevel: info\n"},
		{"bad log level", "settings:\n  logLevel: loud\ndata:\n  dir: ./data\n"},
		{"bad harmonic", "data:\n  dir: ./data\nanalysis:\n  harmonic: 0\n"},
		{"lone run log", "data:\n  dir: ./data\n  allRunsLog: runs.csv\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeTestFile(t, path, tc.content)
			if _, err := LoadConfig(path); err == nil {
				t.Error("LoadConfig() expected error")
			}
		})
	}
}
