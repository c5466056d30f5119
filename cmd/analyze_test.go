package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func newAnalyzeTestCmd(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{Use: "analyze"}
	cmd.SetOut(out)
	addMaskingFlags(cmd)
	cmd.Flags().Int("top", 50, "number of entries to report per category")
	return cmd
}

func TestAnalyzeReportsFrequencies(t *testing.T) {
	resetViper(t)

	file := writeTraceFile(t, t.TempDir(), "trace.log", sampleTrace+"\n"+sampleTrace+"\n"+sampleTrace)

	var out bytes.Buffer
	cmd := newAnalyzeTestCmd(&out)
	if err := cmd.Flags().Set("keyword", "Muster"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := runAnalyze(cmd, []string{file}); err != nil {
		t.Fatalf("runAnalyze() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "String literals (1 distinct):") {
		t.Errorf("report is missing the literal section:\n%s", got)
	}
	if !strings.Contains(got, "3x") {
		t.Errorf("report should count the literal three times:\n%s", got)
	}
	if !strings.Contains(got, "=> '<HASH:") {
		t.Errorf("redactable literal should preview its placeholder:\n%s", got)
	}
	if !strings.Contains(got, "WHERE clauses (1 distinct):") {
		t.Errorf("report is missing the WHERE section:\n%s", got)
	}
	if !strings.Contains(got, "HAVING clauses (0 distinct):") {
		t.Errorf("report is missing the HAVING section:\n%s", got)
	}
}

func TestAnalyzeDoesNotMarkNonSensitiveLiterals(t *testing.T) {
	resetViper(t)

	file := writeTraceFile(t, t.TempDir(), "trace.log", sampleTrace)

	var out bytes.Buffer
	cmd := newAnalyzeTestCmd(&out)
	if err := cmd.Flags().Set("keyword", "Unrelated"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := runAnalyze(cmd, []string{file}); err != nil {
		t.Fatalf("runAnalyze() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "= 'Muster'") {
		t.Errorf("literal should still be observed:\n%s", got)
	}
	if strings.Contains(got, "=> '<HASH:") {
		t.Errorf("non-sensitive literal must not preview a placeholder:\n%s", got)
	}
}

func TestAnalyzeRejectsNonPositiveTop(t *testing.T) {
	resetViper(t)

	file := writeTraceFile(t, t.TempDir(), "trace.log", sampleTrace)

	var out bytes.Buffer
	cmd := newAnalyzeTestCmd(&out)
	if err := cmd.Flags().Set("top", "0"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := runAnalyze(cmd, []string{file}); err == nil {
		t.Fatal("expected an error for --top 0")
	}
}
