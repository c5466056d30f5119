package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newParseTestCmd(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{Use: "parse"}
	cmd.SetOut(out)
	return cmd
}

func TestParseTextOutput(t *testing.T) {
	resetViper(t)

	file := writeTraceFile(t, t.TempDir(), "trace.log", sampleTrace)

	var out bytes.Buffer
	cmd := newParseTestCmd(&out)
	if err := runParse(cmd, []string{file}); err != nil {
		t.Fatalf("runParse() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "EXECUTE_STATEMENT") {
		t.Errorf("output is missing the action:\n%s", got)
	}
	if !strings.Contains(got, "'Muster'") {
		t.Errorf("parse must not mask anything:\n%s", got)
	}
}

func TestParseJSONOutput(t *testing.T) {
	resetViper(t)
	viper.Set("format", "json")

	file := writeTraceFile(t, t.TempDir(), "trace.log", sampleTrace+"\n"+sampleTrace)

	var out bytes.Buffer
	cmd := newParseTestCmd(&out)
	if err := runParse(cmd, []string{file}); err != nil {
		t.Fatalf("runParse() error = %v", err)
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &records); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out.String())
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if got := records[0]["user"]; got != "SYSDBA:NONE" {
		t.Errorf("user = %v, want SYSDBA:NONE", got)
	}
	if got := records[0]["root_tx_id"]; got != "5" {
		t.Errorf("root_tx_id = %v, want 5", got)
	}
}

func TestParseGlobExpansion(t *testing.T) {
	resetViper(t)

	dir := t.TempDir()
	writeTraceFile(t, dir, "a.log", sampleTrace)
	writeTraceFile(t, dir, "b.log", sampleTrace)

	var out bytes.Buffer
	cmd := newParseTestCmd(&out)
	if err := runParse(cmd, []string{filepath.Join(dir, "*.log")}); err != nil {
		t.Fatalf("runParse() error = %v", err)
	}

	if got := strings.Count(out.String(), "EXECUTE_STATEMENT"); got != 2 {
		t.Errorf("expected 2 events across the glob, got %d:\n%s", got, out.String())
	}
}

func TestParseMatchlessGlob(t *testing.T) {
	resetViper(t)

	var out bytes.Buffer
	cmd := newParseTestCmd(&out)
	if err := runParse(cmd, []string{filepath.Join(t.TempDir(), "*.log")}); err == nil {
		t.Fatal("expected an error for a glob with no matches")
	}
}
