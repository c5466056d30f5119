package parser

import (
	"strings"
	"testing"
)

const sampleBlock = `2024-01-01T10:00:00.0001 (1234:ABCD) EXECUTE_STATEMENT
	/db/test.FDB (ATT_1, SYSDBA:NONE, UTF8, TCPv4:127.0.0.1/50000)
	(TRA_5, READ_COMMITTED)
Statement 1:
------------------------------------------------------------------------------
SELECT * FROM USERS WHERE NAME = 'Muster'
^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^
1 ms`

func TestSplitBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{
			name: "single block",
			text: sampleBlock,
			want: 1,
		},
		{
			name: "two blocks",
			text: sampleBlock + "\n" + sampleBlock,
			want: 2,
		},
		{
			name: "preamble discarded",
			text: "Trace session started\nsome noise\n" + sampleBlock,
			want: 1,
		},
		{
			name: "empty input",
			text: "",
			want: 0,
		},
		{
			name: "no boundary at all",
			text: "just\nrandom\nlines",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := SplitBlocks(tt.text)
			if len(blocks) != tt.want {
				t.Fatalf("SplitBlocks() returned %d blocks, want %d", len(blocks), tt.want)
			}
			for _, b := range blocks {
				if !strings.HasPrefix(b, "2024-01-01T10:00:00.0001") {
					t.Errorf("block does not start at a timestamp boundary: %q", b[:40])
				}
			}
		})
	}
}

func TestSplitBlocksPreservesLineBreaks(t *testing.T) {
	blocks := SplitBlocks(sampleBlock)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0] != sampleBlock {
		t.Errorf("block content was altered:\ngot:\n%s\nwant:\n%s", blocks[0], sampleBlock)
	}
}

func TestScanBlocksStopsOnError(t *testing.T) {
	text := sampleBlock + "\n" + sampleBlock + "\n" + sampleBlock
	calls := 0
	err := ScanBlocks(strings.NewReader(text), func(string) error {
		calls++
		if calls == 2 {
			return errStop
		}
		return nil
	})
	if err != errStop {
		t.Fatalf("ScanBlocks() error = %v, want errStop", err)
	}
	if calls != 2 {
		t.Errorf("callback ran %d times, want 2", calls)
	}
}

var errStop = &stopError{}

type stopError struct{}

func (*stopError) Error() string { return "stop" }

// End-to-end example from the trace format documentation.
func TestExtractSample(t *testing.T) {
	rec := Extract(sampleBlock)

	if rec.Timestamp != "2024-01-01T10:00:00.0001" {
		t.Errorf("Timestamp = %q", rec.Timestamp)
	}
	if rec.Action != "EXECUTE_STATEMENT" {
		t.Errorf("Action = %q", rec.Action)
	}
	if rec.ProcessID != 1234 {
		t.Errorf("ProcessID = %d", rec.ProcessID)
	}
	if rec.SessionID != "ABCD" {
		t.Errorf("SessionID = %q", rec.SessionID)
	}
	if rec.DatabasePath != "/db/test.FDB" {
		t.Errorf("DatabasePath = %q", rec.DatabasePath)
	}
	if rec.AttachID != 1 {
		t.Errorf("AttachID = %d", rec.AttachID)
	}
	if rec.User != "SYSDBA:NONE" {
		t.Errorf("User = %q", rec.User)
	}
	if rec.Encoding != "UTF8" {
		t.Errorf("Encoding = %q", rec.Encoding)
	}
	if rec.ProtocolInfo != "TCPv4:127.0.0.1/50000" {
		t.Errorf("ProtocolInfo = %q", rec.ProtocolInfo)
	}
	if rec.ClientIP != "127.0.0.1" {
		t.Errorf("ClientIP = %q", rec.ClientIP)
	}
	if rec.ClientPort != "50000" {
		t.Errorf("ClientPort = %q", rec.ClientPort)
	}
	if rec.TransactionID != 5 {
		t.Errorf("TransactionID = %d", rec.TransactionID)
	}
	if rec.RootTxID != "5" {
		t.Errorf("RootTxID = %q", rec.RootTxID)
	}
	if rec.TransactionOptions != "READ_COMMITTED" {
		t.Errorf("TransactionOptions = %q", rec.TransactionOptions)
	}
	if rec.SqlStatement != "SELECT * FROM USERS WHERE NAME = 'Muster'" {
		t.Errorf("SqlStatement = %q", rec.SqlStatement)
	}
	if rec.DurationMs != 1 {
		t.Errorf("DurationMs = %d", rec.DurationMs)
	}
}

func TestExtractRootTxID(t *testing.T) {
	tests := []struct {
		name  string
		block string
		want  string
	}{
		{
			name:  "init id wins",
			block: "2024-01-01T10:00:00.0001 (1:A) COMMIT\n\t\t(TRA_123, INIT_45, READ_COMMITTED)",
			want:  "45",
		},
		{
			name:  "transaction id as fallback",
			block: "2024-01-01T10:00:00.0001 (1:A) COMMIT\n\t\t(TRA_123, READ_COMMITTED)",
			want:  "123",
		},
		{
			name:  "no transaction at all",
			block: "2024-01-01T10:00:00.0001 (1:A) ATTACH_DATABASE",
			want:  NoTransaction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Extract(tt.block)
			if rec.RootTxID != tt.want {
				t.Errorf("RootTxID = %q, want %q", rec.RootTxID, tt.want)
			}
		})
	}
}

func TestExtractApplication(t *testing.T) {
	block := "2024-01-01T10:00:00.0001 (1234:ABCD) ATTACH_DATABASE\n" +
		"\t/db/test.FDB (ATT_9, SYSDBA:NONE, UTF8, TCPv4:10.0.0.2/3050)\n" +
		"\t/usr/bin/isql:4813"

	rec := Extract(block)
	if rec.ApplicationPath != "/usr/bin/isql" {
		t.Errorf("ApplicationPath = %q, want /usr/bin/isql", rec.ApplicationPath)
	}
	if rec.ApplicationPID != 4813 {
		t.Errorf("ApplicationPID = %d, want 4813", rec.ApplicationPID)
	}
	// The attach descriptor line must not be mistaken for the application.
	if rec.DatabasePath != "/db/test.FDB" {
		t.Errorf("DatabasePath = %q", rec.DatabasePath)
	}
}

func TestExtractApplicationWindowsPath(t *testing.T) {
	block := "2024-01-01T10:00:00.0001 (1234:ABCD) ATTACH_DATABASE\n" +
		`	C:\tools\flamerobin.exe:2044`

	rec := Extract(block)
	if rec.ApplicationPath != `C:\tools\flamerobin.exe` {
		t.Errorf("ApplicationPath = %q", rec.ApplicationPath)
	}
	if rec.ApplicationPID != 2044 {
		t.Errorf("ApplicationPID = %d", rec.ApplicationPID)
	}
}

func TestExtractStatementTerminators(t *testing.T) {
	head := "2024-01-01T10:00:00.0001 (1:A) EXECUTE_STATEMENT\n" +
		"Statement 7:\n" +
		"------------------------------------------------------------------------------\n" +
		"SELECT ID FROM T\n"

	tests := []struct {
		name string
		tail string
	}{
		{name: "caret rule", tail: "^^^^^^^^\n5 ms"},
		{name: "plan", tail: "PLAN (T NATURAL)"},
		{name: "param line", tail: "param0 = varchar(10), \"abc\""},
		{name: "records fetched", tail: "3 records fetched"},
		{name: "duration", tail: "12 ms"},
		{name: "table stats", tail: "Table                 Natural\n********\nT          3"},
		{name: "end of block", tail: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Extract(head + tt.tail)
			if rec.SqlStatement != "SELECT ID FROM T" {
				t.Errorf("SqlStatement = %q, want %q", rec.SqlStatement, "SELECT ID FROM T")
			}
		})
	}
}

func TestExtractMultilineStatement(t *testing.T) {
	block := "2024-01-01T10:00:00.0001 (1:A) EXECUTE_STATEMENT\n" +
		"Statement 2:\n" +
		"------------------------------------------------------------------------------\n" +
		"SELECT A, B\n" +
		"  FROM T\n" +
		" WHERE A > 1\n" +
		"^^^^^^^^\n" +
		"2 ms"

	rec := Extract(block)
	want := "SELECT A, B\n  FROM T\n WHERE A > 1"
	if rec.SqlStatement != want {
		t.Errorf("SqlStatement = %q, want %q", rec.SqlStatement, want)
	}
}

func TestExtractPlanAndParams(t *testing.T) {
	block := "2024-01-01T10:00:00.0001 (1:A) EXECUTE_STATEMENT\n" +
		"Statement 3:\n" +
		"------------------------------------------------------------------------------\n" +
		"SELECT * FROM T WHERE A = ?\n" +
		"PLAN (T INDEX (PK_T))\n" +
		"PLAN (U NATURAL)\n" +
		"param0 = integer, \"7\"\n" +
		"param1 = varchar(20), \"Muster\"\n" +
		"4 ms, 2 read(s), 14 fetch(es)"

	rec := Extract(block)
	if rec.SqlPlan != "PLAN (T INDEX (PK_T))\nPLAN (U NATURAL)" {
		t.Errorf("SqlPlan = %q", rec.SqlPlan)
	}
	if rec.Params != "param0 = integer, \"7\"\nparam1 = varchar(20), \"Muster\"" {
		t.Errorf("Params = %q", rec.Params)
	}
	if rec.DurationMs != 4 || rec.Reads != 2 || rec.Fetches != 14 {
		t.Errorf("performance = %d ms, %d reads, %d fetches", rec.DurationMs, rec.Reads, rec.Fetches)
	}
	if rec.Writes != 0 || rec.Marks != 0 {
		t.Errorf("absent counters should stay 0, got writes=%d marks=%d", rec.Writes, rec.Marks)
	}
}

func TestExtractTableStatsNotTrimmed(t *testing.T) {
	stats := "Table                             Natural     Index    Update\n" +
		"***************************************************************\n" +
		"USERS                                   1         2\n" +
		"ORDERS                                            5"
	block := "2024-01-01T10:00:00.0001 (1:A) EXECUTE_STATEMENT_FINISH\n" + stats + "\n"

	rec := Extract(block)
	if rec.TableStats != stats {
		t.Errorf("TableStats altered:\ngot:\n%s\nwant:\n%s", rec.TableStats, stats)
	}
}

func TestExtractHeaderlessBlockFields(t *testing.T) {
	// A block whose sub-grammars all miss still yields a record.
	rec := Extract("2024-01-01T10:00:00.0001 garbage without structure")
	if rec.Timestamp != "" || rec.Action != "" {
		t.Errorf("header fields should be empty, got %q %q", rec.Timestamp, rec.Action)
	}
	if rec.RootTxID != NoTransaction {
		t.Errorf("RootTxID = %q, want %q", rec.RootTxID, NoTransaction)
	}
	if rec.DurationMs != 0 {
		t.Errorf("DurationMs = %d, want 0", rec.DurationMs)
	}
}

func TestParseStreamOrder(t *testing.T) {
	text := strings.ReplaceAll(sampleBlock, "TRA_5", "TRA_1") + "\n" +
		strings.ReplaceAll(sampleBlock, "TRA_5", "TRA_2") + "\n" +
		strings.ReplaceAll(sampleBlock, "TRA_5", "TRA_3")

	p := New()
	var ids []int
	err := p.ParseStream(strings.NewReader(text), func(rec TraceRecord) error {
		ids = append(ids, rec.TransactionID)
		return nil
	})
	if err != nil {
		t.Fatalf("ParseStream() error = %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("records out of order: %v", ids)
	}
}

func TestParseFileMissing(t *testing.T) {
	p := New()
	if _, err := p.ParseFile("/does/not/exist.log"); err == nil {
		t.Error("ParseFile() on missing file should fail")
	}
}

func TestRecordTime(t *testing.T) {
	rec := Extract(sampleBlock)
	ts := rec.Time()
	if ts.IsZero() {
		t.Fatal("Time() returned zero for a parsed header timestamp")
	}
	if ts.Year() != 2024 || ts.Hour() != 10 {
		t.Errorf("Time() = %v", ts)
	}

	if !(TraceRecord{}).Time().IsZero() {
		t.Error("Time() on an empty record should be zero")
	}
}

func TestRenderRoundTrip(t *testing.T) {
	rec := Extract(sampleBlock)
	again := Extract(rec.Render())

	if again.SqlStatement != rec.SqlStatement {
		t.Errorf("SqlStatement lost in render: %q vs %q", again.SqlStatement, rec.SqlStatement)
	}
	if again.User != rec.User || again.ClientIP != rec.ClientIP {
		t.Errorf("connection fields lost in render: %q %q", again.User, again.ClientIP)
	}
	if again.RootTxID != rec.RootTxID {
		t.Errorf("RootTxID lost in render: %q vs %q", again.RootTxID, rec.RootTxID)
	}
	if again.DurationMs != rec.DurationMs {
		t.Errorf("DurationMs lost in render: %d vs %d", again.DurationMs, rec.DurationMs)
	}
}

func BenchmarkExtract(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Extract(sampleBlock)
	}
}

func BenchmarkSplitBlocks(b *testing.B) {
	text := strings.Repeat(sampleBlock+"\n", 50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SplitBlocks(text)
	}
}
