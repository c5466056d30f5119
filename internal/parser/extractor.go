package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Field grammars. Each one is applied to the full block independently of
// the others: a grammar that does not match leaves its fields at their
// zero value and never fails the record.
var (
	// 2024-01-01T10:00:00.0001 (1234:ABCD) EXECUTE_STATEMENT
	headerRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+)\s+\((\d+):([0-9A-Fa-f]+)\)\s+(\w+)`)

	//	/db/test.FDB (ATT_1, SYSDBA:NONE, UTF8, TCPv4:127.0.0.1/50000)
	connectionRe = regexp.MustCompile(`(?m)^[ \t]*(\S+)\s+\(ATT_(\d+),\s*([^,]+),\s*([^,]+),\s*([^)]+)\)`)

	// TCPv4:127.0.0.1/50000 -> protocol tag, address, port
	protocolRe = regexp.MustCompile(`^([^:]+):(.+)/(\d+)$`)

	//	/usr/bin/isql:4813 (client application, never on an ATT_ line)
	applicationRe = regexp.MustCompile(`^[ \t]*(\S+):(\d+)[ \t]*$`)

	//		(TRA_5, INIT_2, READ_COMMITTED | WAIT | READ_WRITE)
	transactionRe = regexp.MustCompile(`\(TRA_(\d+)(?:,\s*INIT_(\d+))?,\s*([^)]+)\)`)

	stmtMarkerRe = regexp.MustCompile(`^Statement \d+:`)
	dashRuleRe   = regexp.MustCompile(`^-{4,}$`)
	caretRuleRe  = regexp.MustCompile(`^\^{4,}`)
	paramLineRe  = regexp.MustCompile(`^[ \t]*param\d+ = `)
	fetchedRe    = regexp.MustCompile(`^\d+ records fetched`)
	tableHeadRe  = regexp.MustCompile(`^Table\s+Natural`)
	starRuleRe   = regexp.MustCompile(`^\*{4,}`)

	// PLAN (USERS NATURAL), one or more contiguous PLAN lines.
	planRe = regexp.MustCompile(`(?m)^PLAN.*(?:\nPLAN.*)*`)

	// 1 ms, 3 read(s), 5 write(s), 14 fetch(es), 4 mark(s)
	// every counter after the duration is independently optional
	perfRe = regexp.MustCompile(`(?m)^[ \t]*(\d+) ms(?:,\s*(\d+) read\(s\))?(?:,\s*(\d+) write\(s\))?(?:,\s*(\d+) fetch\(es\))?(?:,\s*(\d+) mark\(s\))?`)
)

// Extract produces exactly one TraceRecord from one event block. It never
// returns an error: missing sub-structure leaves the corresponding fields
// at their zero values.
func Extract(block string) TraceRecord {
	rec := TraceRecord{RootTxID: NoTransaction}
	lines := strings.Split(block, "\n")

	extractHeader(block, &rec)
	extractConnection(block, &rec)
	extractApplication(lines, &rec)
	extractTransaction(block, &rec)
	extractStatement(lines, &rec)
	extractPlan(block, &rec)
	extractTableStats(lines, &rec)
	extractParams(lines, &rec)
	extractPerformance(block, &rec)

	return rec
}

func extractHeader(block string, rec *TraceRecord) {
	m := headerRe.FindStringSubmatch(block)
	if m == nil {
		return
	}
	rec.Timestamp = m[1]
	rec.ProcessID = mustInt(m[2])
	rec.SessionID = m[3]
	rec.Action = m[4]
}

func extractConnection(block string, rec *TraceRecord) {
	m := connectionRe.FindStringSubmatch(block)
	if m == nil {
		return
	}
	rec.DatabasePath = m[1]
	rec.AttachID = mustInt(m[2])
	rec.User = strings.TrimSpace(m[3])
	rec.Encoding = strings.TrimSpace(m[4])
	rec.ProtocolInfo = strings.TrimSpace(m[5])

	if pm := protocolRe.FindStringSubmatch(rec.ProtocolInfo); pm != nil {
		rec.ClientIP = pm[2]
		rec.ClientPort = pm[3]
	}
}

// extractApplication finds the client application path and pid. Attachment
// descriptor lines also end in path-like tokens, so lines carrying the
// ATT_ marker are excluded up front.
func extractApplication(lines []string, rec *TraceRecord) {
	for _, line := range lines {
		if strings.Contains(line, "(ATT_") {
			continue
		}
		m := applicationRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if !strings.ContainsAny(m[1], `/\`) {
			continue // not a path-like token
		}
		rec.ApplicationPath = m[1]
		rec.ApplicationPID = mustInt(m[2])
		return
	}
}

func extractTransaction(block string, rec *TraceRecord) {
	m := transactionRe.FindStringSubmatch(block)
	if m == nil {
		return
	}
	rec.TransactionID = mustInt(m[1])
	if m[2] != "" {
		rec.InitID = mustInt(m[2])
	}
	rec.TransactionOptions = strings.TrimSpace(m[3])

	// InitID ties the statement to its logical root transaction; fall
	// back to the statement's own transaction.
	switch {
	case rec.InitID != 0:
		rec.RootTxID = strconv.Itoa(rec.InitID)
	case rec.TransactionID != 0:
		rec.RootTxID = strconv.Itoa(rec.TransactionID)
	}
}

// extractStatement captures the SQL text between the "Statement N:" marker
// and the first terminating sentinel. Go's RE2 has no lookahead, so the
// terminator scan is done line by line; the terminator itself is not
// consumed and stays visible to the other grammars.
func extractStatement(lines []string, rec *TraceRecord) {
	start := -1
	for i, line := range lines {
		if stmtMarkerRe.MatchString(line) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return
	}
	if start < len(lines) && dashRuleRe.MatchString(lines[start]) {
		start++
	}

	var sql []string
	for _, line := range lines[start:] {
		if isStatementTerminator(line) {
			break
		}
		sql = append(sql, line)
	}
	rec.SqlStatement = strings.TrimSpace(strings.Join(sql, "\n"))
}

func isStatementTerminator(line string) bool {
	switch {
	case caretRuleRe.MatchString(line):
		return true
	case strings.HasPrefix(line, "PLAN ("):
		return true
	case paramLineRe.MatchString(line):
		return true
	case fetchedRe.MatchString(line):
		return true
	case perfRe.MatchString(line):
		return true
	case tableHeadRe.MatchString(line):
		return true
	}
	return false
}

func extractPlan(block string, rec *TraceRecord) {
	if m := planRe.FindString(block); m != "" {
		rec.SqlPlan = strings.TrimSpace(m)
	}
}

// extractTableStats captures the table access statistics block: the
// "Table ... Natural" header, the asterisk rule below it and the counter
// lines that follow. The capture is deliberately not trimmed so the
// columnar alignment survives.
func extractTableStats(lines []string, rec *TraceRecord) {
	for i, line := range lines {
		if !tableHeadRe.MatchString(line) {
			continue
		}
		if i+1 >= len(lines) || !starRuleRe.MatchString(lines[i+1]) {
			continue
		}
		stats := lines[i : i+2]
		for _, l := range lines[i+2:] {
			if strings.TrimSpace(l) == "" {
				break
			}
			stats = append(stats, l)
		}
		rec.TableStats = strings.Join(stats, "\n")
		return
	}
}

func extractParams(lines []string, rec *TraceRecord) {
	start := -1
	for i, line := range lines {
		if paramLineRe.MatchString(line) {
			start = i
			break
		}
	}
	if start < 0 {
		return
	}
	end := start
	for end < len(lines) && paramLineRe.MatchString(lines[end]) {
		end++
	}
	rec.Params = strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}

func extractPerformance(block string, rec *TraceRecord) {
	m := perfRe.FindStringSubmatch(block)
	if m == nil {
		return
	}
	rec.DurationMs = mustInt64(m[1])
	rec.Reads = optInt64(m[2])
	rec.Writes = optInt64(m[3])
	rec.Fetches = optInt64(m[4])
	rec.Marks = optInt64(m[5])
}

// mustInt converts a substring the grammar already constrained to digits.
// Failure here is a defect in the grammar, not bad input data.
func mustInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		panic(fmt.Sprintf("parser: digit grammar produced non-numeric %q: %v", s, err))
	}
	return n
}

func mustInt64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		panic(fmt.Sprintf("parser: digit grammar produced non-numeric %q: %v", s, err))
	}
	return n
}

func optInt64(s string) int64 {
	if s == "" {
		return 0
	}
	return mustInt64(s)
}
