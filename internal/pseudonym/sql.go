package pseudonym

import (
	"regexp"
	"strings"

	"github.com/tkrenek/fbmask/internal/parser"
)

// literalRe matches a single-quoted SQL string literal, optionally
// preceded by a comparison or pattern operator. Quote doubling ('') is the
// only in-literal escape the trace format knows; an unterminated literal
// simply does not match and its text passes through unmodified. That
// fail-open behavior is deliberate: unmatched content is never hashed.
var literalRe = regexp.MustCompile(
	`(?i)((?:\b(?:NOT\s+LIKE|STARTING\s+WITH|SIMILAR\s+TO|CONTAINING|LIKE|IN)\b|<=|>=|<>|!=|=|<|>)\s*)?'([^']*(?:''[^']*)*)'`)

// clauseStartRe finds the start of the first WHERE or HAVING clause.
var clauseStartRe = regexp.MustCompile(`(?i)\b(?:WHERE|HAVING)\b`)

// Clause extraction for analyze mode. A clause runs from its keyword to
// the next clause-terminating keyword or the end of the statement.
var (
	whereClauseRe  = regexp.MustCompile(`(?is)\bWHERE\b(.*?)(?:\bGROUP\s+BY\b|\bORDER\s+BY\b|\bROWS\b|\bPLAN\b|\bUNION\b|$)`)
	havingClauseRe = regexp.MustCompile(`(?is)\bHAVING\b(.*?)(?:\bORDER\s+BY\b|\bROWS\b|\bPLAN\b|\bUNION\b|$)`)
)

// transformStatement rewrites SQL text in two ordered passes: targeted
// literal redaction first, then the coarse clause-level safety net for
// sensitive content the literal grammar could not isolate.
func (e *Engine) transformStatement(sql string) string {
	if sql == "" {
		return sql
	}
	rewritten := e.redactLiterals(sql)
	return e.redactClause(rewritten)
}

// redactLiterals is Pass A. Each matched literal is judged independently;
// redacted ones become '<HASH:digest>' with any captured operator token
// kept verbatim in front, everything else is copied through untouched. The
// rewrite builds a fresh string from the match spans — the input is never
// mutated.
func (e *Engine) redactLiterals(sql string) string {
	matches := literalRe.FindAllStringSubmatchIndex(sql, -1)
	if matches == nil {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql))
	last := 0
	for _, m := range matches {
		content := sql[m[4]:m[5]]
		if !e.ShouldRedact(content) {
			continue
		}
		b.WriteString(sql[last:m[0]])
		if m[2] >= 0 {
			b.WriteString(sql[m[2]:m[3]]) // operator token, verbatim
		}
		b.WriteString("'<HASH:")
		b.WriteString(e.Hash(content))
		b.WriteString(">'")
		last = m[1]
	}
	b.WriteString(sql[last:])
	return b.String()
}

// redactClause is Pass B. It only runs when keywords are configured and
// one of them survived Pass A, which means sensitive text sits outside any
// quoted literal. Everything from the first WHERE or HAVING to the end of
// the statement is then collapsed into a single placeholder carrying the
// hash of that span. With several independent clauses (UNIONed statements)
// the span still starts at the first occurrence; that coarseness is the
// documented contract.
func (e *Engine) redactClause(sql string) string {
	if len(e.opts.Keywords) == 0 || !e.containsKeyword(sql) {
		return sql
	}
	loc := clauseStartRe.FindStringIndex(sql)
	if loc == nil {
		return sql
	}
	span := sql[loc[0]:]
	return sql[:loc[0]] + "<HASH:" + e.Hash(span) + ">"
}

func (e *Engine) containsKeyword(s string) bool {
	for _, kw := range e.opts.Keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// ObservationKind identifies what an analyze-mode observation describes.
type ObservationKind int

const (
	KindLiteral ObservationKind = iota
	KindWhereClause
	KindHavingClause
)

// Observation is one analyze-mode finding: a display string describing a
// literal or clause that a transforming run would see.
type Observation struct {
	Kind  ObservationKind
	Value string
}

// Analyze is the non-mutating preview of Transform. It reports every
// string literal the literal grammar finds (with its operator, upper-cased,
// and a hash preview when the literal would be redacted) plus the first
// WHERE and HAVING clauses of the original, unmodified statement. Running
// Analyze and then Transform over the same record marks exactly the same
// literals for redaction.
func (e *Engine) Analyze(rec parser.TraceRecord) []Observation {
	sql := rec.SqlStatement
	if sql == "" {
		return nil
	}

	var obs []Observation
	for _, m := range literalRe.FindAllStringSubmatchIndex(sql, -1) {
		content := sql[m[4]:m[5]]
		display := "'" + content + "'"
		if m[2] >= 0 {
			op := strings.ToUpper(strings.Join(strings.Fields(sql[m[2]:m[3]]), " "))
			if op != "" {
				display = op + " " + display
			}
		}
		if e.ShouldRedact(content) {
			display += " => '<HASH:" + e.Hash(content) + ">'"
		}
		obs = append(obs, Observation{Kind: KindLiteral, Value: display})
	}

	if m := whereClauseRe.FindStringSubmatch(sql); m != nil {
		obs = append(obs, Observation{Kind: KindWhereClause, Value: strings.TrimSpace(m[1])})
	}
	if m := havingClauseRe.FindStringSubmatch(sql); m != nil {
		obs = append(obs, Observation{Kind: KindHavingClause, Value: strings.TrimSpace(m[1])})
	}

	return obs
}
