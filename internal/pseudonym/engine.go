// Package pseudonym deterministically replaces sensitive values in trace
// records with stable hashes.
//
// The same input value always produces the same digest, so correlations
// between events survive the rewrite (the same user or address keeps the
// same placeholder across the whole run). This is pseudonymization, not
// anonymization: anyone holding a candidate value can recompute its hash.
package pseudonym

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/tkrenek/fbmask/internal/parser"
)

// Hash length bounds for the hex-rendered digest.
const (
	MinHashLength     = 8
	MaxHashLength     = 64
	DefaultHashLength = 12
)

// Options configures an Engine for one run.
type Options struct {
	// HashLength is the number of hex characters kept from the digest,
	// constrained to [MinHashLength, MaxHashLength].
	HashLength int

	// Keywords whose presence (case-sensitive substring) marks content
	// as sensitive.
	Keywords []string

	// RedactAllLiterals marks every SQL string literal of meaningful
	// length as sensitive, keyword match or not.
	RedactAllLiterals bool
}

// Validate rejects unusable options before any processing starts.
func (o Options) Validate() error {
	if o.HashLength < MinHashLength || o.HashLength > MaxHashLength {
		return fmt.Errorf("hash length must be between %d and %d, got %d",
			MinHashLength, MaxHashLength, o.HashLength)
	}
	return nil
}

// Engine transforms trace records. It holds no per-record state, so one
// engine serves a whole run.
type Engine struct {
	opts Options
}

// NewEngine creates an Engine, validating the options first.
func NewEngine(opts Options) (*Engine, error) {
	if opts.HashLength == 0 {
		opts.HashLength = DefaultHashLength
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{opts: opts}, nil
}

// Hash computes the SHA-256 digest of value, rendered as lowercase hex and
// truncated to the configured length. Empty input is returned unchanged —
// an empty field stays recognizably empty.
func (e *Engine) Hash(value string) string {
	if value == "" {
		return value
	}
	sum := sha256.Sum256([]byte(value))
	digest := hex.EncodeToString(sum[:])
	if e.opts.HashLength < len(digest) {
		digest = digest[:e.opts.HashLength]
	}
	return digest
}

// ShouldRedact decides whether literal content is sensitive. A configured
// keyword matching as a substring always wins, regardless of content
// length. With RedactAllLiterals, any content that keeps at least two
// characters after stripping % wildcards qualifies. Whitespace-only
// content is never sensitive.
func (e *Engine) ShouldRedact(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	for _, kw := range e.opts.Keywords {
		if kw != "" && strings.Contains(content, kw) {
			return true
		}
	}
	if e.opts.RedactAllLiterals {
		bare := strings.ReplaceAll(content, "%", "")
		return len(bare) >= 2
	}
	return false
}

// protocolInfoRe splits "tag:address/port" into its three segments; the
// port suffix is optional.
var protocolInfoRe = regexp.MustCompile(`^([^:]+):(.+?)(/\d+)?$`)

// quotedParamRe matches one double-quoted segment of a param line. The
// trace format has no embedded-quote escaping.
var quotedParamRe = regexp.MustCompile(`"([^"]*)"`)

// Transform returns a pseudonymized copy of the record. The input record
// is never touched; callers may retain and re-iterate the source sequence.
func (e *Engine) Transform(rec parser.TraceRecord) parser.TraceRecord {
	out := rec

	out.User = e.Hash(rec.User)
	out.ApplicationPath = e.Hash(rec.ApplicationPath)
	out.ClientIP = e.Hash(rec.ClientIP)
	out.ProtocolInfo = e.transformProtocolInfo(rec.ProtocolInfo)
	out.Params = e.transformParams(rec.Params)
	out.SqlStatement = e.transformStatement(rec.SqlStatement)

	return out
}

// transformProtocolInfo hashes only the address segment, keeping the
// protocol tag and the port suffix intact: TCPv4:127.0.0.1/50000 becomes
// TCPv4:<digest>/50000. Values that do not look like tag:address pass
// through unchanged.
func (e *Engine) transformProtocolInfo(info string) string {
	m := protocolInfoRe.FindStringSubmatch(info)
	if m == nil {
		return info
	}
	return m[1] + ":" + e.Hash(m[2]) + m[3]
}

// transformParams hashes the content of every double-quoted segment,
// preserving the surrounding quotes.
func (e *Engine) transformParams(params string) string {
	if params == "" {
		return params
	}
	return quotedParamRe.ReplaceAllStringFunc(params, func(match string) string {
		content := match[1 : len(match)-1]
		return `"` + e.Hash(content) + `"`
	})
}
