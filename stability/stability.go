// Package stability computes and verifies the per-interface content
// hashes that detect unintended changes to released (frozen) interfaces.
//
// The authoritative ledger of frozen digests is an externally maintained
// file, one entry per line:
//
//	<64-char lowercase hex sha256><space><canonical fqname>
//
// This package only computes current digests, emits ledger lines, and
// compares a fresh digest against the recorded ones when asked.
package stability

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"

	"github.com/sidl-dev/sidlgen/errors"
	"github.com/sidl-dev/sidlgen/fqn"
)

// Enforcement selects how the resolver treats frozen interfaces during
// parsing.
type Enforcement int

const (
	// EnforceNone skips stability checking entirely.
	EnforceNone Enforcement = iota

	// EnforceHash computes the current digest and fails the parse when a
	// recorded frozen digest disagrees.
	EnforceHash

	// EnforceNoHash force-skips hash checking even when a frozen digest
	// is recorded. The ledger-printing target needs this so it can parse
	// frozen interfaces without rejecting them.
	EnforceNoHash
)

func (e Enforcement) String() string {
	switch e {
	case EnforceNone:
		return "none"
	case EnforceHash:
		return "hash"
	case EnforceNoHash:
		return "no-hash"
	default:
		return "unknown"
	}
}

// ParseEnforcement converts a configuration string to an Enforcement.
func ParseEnforcement(s string) (Enforcement, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return EnforceNone, nil
	case "hash":
		return EnforceHash, nil
	case "no-hash", "nohash":
		return EnforceNoHash, nil
	default:
		return EnforceNone, errors.Newf("unknown enforcement mode %q", s)
	}
}

// DigestLen is the fixed width of a hex digest in ledger lines.
const DigestLen = sha256.Size * 2

// Canonicalize normalizes incidental formatting so that semantically
// identical source text always hashes identically: CRLF becomes LF and
// trailing whitespace is stripped per line. The declaration content
// itself is untouched.
func Canonicalize(source string) string {
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// ComputeHash returns the fixed-width lowercase hex digest of the
// canonical form of source.
func ComputeHash(source string) string {
	sum := sha256.Sum256([]byte(Canonicalize(source)))
	return hex.EncodeToString(sum[:])
}

// LedgerLine formats one ledger entry.
func LedgerLine(digest string, name fqn.FQName) string {
	return digest + " " + name.String()
}

// Record pairs an FQName with its current digest.
type Record struct {
	Name   fqn.FQName
	Digest string
}

// EmitLedgerLines renders records as ledger lines in the caller-supplied
// order.
func EmitLedgerLines(records []Record) []string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = LedgerLine(r.Digest, r.Name)
	}
	return lines
}

// Lookup returns every frozen digest recorded for name in the ledger at
// path. A missing ledger file means nothing is frozen and is not an
// error. An interface may legitimately carry several recorded digests
// (one per re-release of identical semantics).
func Lookup(path string, name fqn.FQName) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "opening ledger %s", path)
	}
	defer file.Close()

	want := name.String()
	var digests []string

	scanner := bufio.NewScanner(file)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		digest, fqname, ok := strings.Cut(line, " ")
		if !ok || len(digest) != DigestLen {
			return nil, errors.Newf("ledger %s: malformed entry at line %d", path, lineno)
		}
		if fqname == want {
			digests = append(digests, digest)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading ledger %s", path)
	}
	return digests, nil
}

// Verify compares the current digest of source against the recorded
// frozen digests. An empty frozen list means the interface is not frozen
// and always passes.
func Verify(name fqn.FQName, source string, frozen []string) error {
	if len(frozen) == 0 {
		return nil
	}
	current := ComputeHash(source)
	for _, digest := range frozen {
		if digest == current {
			return nil
		}
	}
	return errors.WithHint(
		errors.Wrapf(errors.ErrStabilityMismatch,
			"%s has hash %s which does not match hash on record", name, current),
		"this interface has been frozen; do not change it")
}
