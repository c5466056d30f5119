package parser

import (
	"fmt"
	"strings"
	"time"
)

// NoTransaction is the RootTxID for records without any transaction context.
const NoTransaction = "NoTx"

// TraceRecord is the structured representation of one trace-log event.
//
// Fields a block does not carry stay at their zero value; extraction never
// fails a whole record because one grammar did not match. A record is
// created once by the extractor and not mutated afterwards — the
// pseudonymization engine returns a transformed copy.
type TraceRecord struct {
	// Header identity fields.
	Timestamp string `json:"timestamp,omitempty"`
	Action    string `json:"action,omitempty"`
	ProcessID int    `json:"process_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	// Connection fields.
	DatabasePath string `json:"database_path,omitempty"`
	AttachID     int    `json:"attach_id,omitempty"`
	User         string `json:"user,omitempty"`
	Encoding     string `json:"encoding,omitempty"`
	ProtocolInfo string `json:"protocol_info,omitempty"`
	ClientIP     string `json:"client_ip,omitempty"`
	ClientPort   string `json:"client_port,omitempty"`

	// Client application, when the block describes an application
	// attachment distinct from the database attach line.
	ApplicationPath string `json:"application_path,omitempty"`
	ApplicationPID  int    `json:"application_pid,omitempty"`

	// Transaction fields. RootTxID is InitID if present, else
	// TransactionID, else "NoTx".
	TransactionID      int    `json:"transaction_id,omitempty"`
	InitID             int    `json:"init_id,omitempty"`
	RootTxID           string `json:"root_tx_id"`
	TransactionOptions string `json:"transaction_options,omitempty"`

	// Statement payload. SqlStatement, SqlPlan and Params are trimmed;
	// TableStats keeps its whitespace so the columns stay aligned.
	Params       string `json:"params,omitempty"`
	SqlStatement string `json:"sql_statement,omitempty"`
	SqlPlan      string `json:"sql_plan,omitempty"`
	TableStats   string `json:"table_stats,omitempty"`

	// Performance counters.
	DurationMs int64 `json:"duration_ms"`
	Reads      int64 `json:"reads,omitempty"`
	Writes     int64 `json:"writes,omitempty"`
	Fetches    int64 `json:"fetches,omitempty"`
	Marks      int64 `json:"marks,omitempty"`
}

// timestampLayout matches the traced server's header format, e.g.
// 2024-01-01T10:00:00.0001.
const timestampLayout = "2006-01-02T15:04:05.0000"

// Time parses the header timestamp. Records whose header grammar did not
// match (or with unexpected precision) return the zero time.
func (r TraceRecord) Time() time.Time {
	if r.Timestamp == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timestampLayout, r.Timestamp); err == nil {
		return t
	}
	// Fractional seconds vary between trace configurations; retry with
	// the fraction stripped.
	if i := strings.IndexByte(r.Timestamp, '.'); i > 0 {
		if t, err := time.Parse("2006-01-02T15:04:05", r.Timestamp[:i]); err == nil {
			return t
		}
	}
	return time.Time{}
}

// HasStatement reports whether the record carries SQL text.
func (r TraceRecord) HasStatement() bool {
	return r.SqlStatement != ""
}

// Render reconstructs a canonical trace-text block from the record. The
// output follows the source layout closely enough to stay readable as a
// trace log, but it is a canonical form, not a byte-for-byte copy of the
// input block.
func (r TraceRecord) Render() string {
	var b strings.Builder

	if r.Timestamp != "" {
		fmt.Fprintf(&b, "%s (%d:%s) %s\n", r.Timestamp, r.ProcessID, r.SessionID, r.Action)
	}
	if r.DatabasePath != "" {
		fmt.Fprintf(&b, "\t%s (ATT_%d, %s, %s, %s)\n",
			r.DatabasePath, r.AttachID, r.User, r.Encoding, r.ProtocolInfo)
	}
	if r.ApplicationPath != "" {
		fmt.Fprintf(&b, "\t%s:%d\n", r.ApplicationPath, r.ApplicationPID)
	}
	if r.TransactionID != 0 {
		if r.InitID != 0 {
			fmt.Fprintf(&b, "\t\t(TRA_%d, INIT_%d, %s)\n", r.TransactionID, r.InitID, r.TransactionOptions)
		} else {
			fmt.Fprintf(&b, "\t\t(TRA_%d, %s)\n", r.TransactionID, r.TransactionOptions)
		}
	}
	if r.SqlStatement != "" {
		b.WriteString(statementHeader)
		b.WriteString(r.SqlStatement)
		b.WriteByte('\n')
		b.WriteString(statementFooter)
	}
	if r.SqlPlan != "" {
		b.WriteString(r.SqlPlan)
		b.WriteByte('\n')
	}
	if r.Params != "" {
		b.WriteString(r.Params)
		b.WriteByte('\n')
	}
	if r.DurationMs != 0 || r.Reads != 0 || r.Writes != 0 || r.Fetches != 0 || r.Marks != 0 {
		fmt.Fprintf(&b, "%d ms", r.DurationMs)
		if r.Reads != 0 {
			fmt.Fprintf(&b, ", %d read(s)", r.Reads)
		}
		if r.Writes != 0 {
			fmt.Fprintf(&b, ", %d write(s)", r.Writes)
		}
		if r.Fetches != 0 {
			fmt.Fprintf(&b, ", %d fetch(es)", r.Fetches)
		}
		if r.Marks != 0 {
			fmt.Fprintf(&b, ", %d mark(s)", r.Marks)
		}
		b.WriteByte('\n')
	}
	if r.TableStats != "" {
		b.WriteString(r.TableStats)
		if !strings.HasSuffix(r.TableStats, "\n") {
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// Rendered blocks keep the source sentinels so they parse again.
const (
	statementHeader = "Statement 1:\n" +
		"-------------------------------------------------------------------------------\n"
	statementFooter = "^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^\n"
)
