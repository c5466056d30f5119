package pseudonym

import "sort"

// DefaultTopN is the number of entries the end-of-run report keeps per
// observation kind.
const DefaultTopN = 50

// Aggregator accumulates frequency-ranked statistics of would-be-redacted
// content across a run. It is run-scoped state the caller threads through
// the pipeline; one logical writer appends, the report is read once at the
// end.
type Aggregator struct {
	literals map[string]int
	wheres   map[string]int
	havings  map[string]int
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		literals: make(map[string]int),
		wheres:   make(map[string]int),
		havings:  make(map[string]int),
	}
}

// Add records one observation. Blank values are never recorded.
func (a *Aggregator) Add(o Observation) {
	if o.Value == "" || isBlank(o.Value) {
		return
	}
	switch o.Kind {
	case KindLiteral:
		a.literals[o.Value]++
	case KindWhereClause:
		a.wheres[o.Value]++
	case KindHavingClause:
		a.havings[o.Value]++
	}
}

// Observe records a batch of observations from one record.
func (a *Aggregator) Observe(obs []Observation) {
	for _, o := range obs {
		a.Add(o)
	}
}

// EntryCount is one ranked report row.
type EntryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Report is the end-of-run frequency summary.
type Report struct {
	Literals      []EntryCount `json:"literals"`
	WhereClauses  []EntryCount `json:"where_clauses"`
	HavingClauses []EntryCount `json:"having_clauses"`
}

// Report produces the top n entries per observation kind, sorted by
// descending count. Ties are broken by value so the output is stable.
func (a *Aggregator) Report(n int) Report {
	if n <= 0 {
		n = DefaultTopN
	}
	return Report{
		Literals:      topEntries(a.literals, n),
		WhereClauses:  topEntries(a.wheres, n),
		HavingClauses: topEntries(a.havings, n),
	}
}

func topEntries(counts map[string]int, n int) []EntryCount {
	entries := make([]EntryCount, 0, len(counts))
	for v, c := range counts {
		entries = append(entries, EntryCount{Value: v, Count: c})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Value < entries[j].Value
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
