// Package compress trims and deduplicates sequences of conversation text
// under a token budget. Compression is a read-time transform: callers keep
// the canonical history and compress only the materialized view.
package compress

import (
	"github.com/nexxia-ai/tiermem/utils"
)

// DedupStrategy selects how duplicate chunks are removed.
type DedupStrategy string

const (
	DedupNone DedupStrategy = "none"
	DedupHash DedupStrategy = "hash"
)

// TrimPolicy selects how the surviving chunks are shrunk.
type TrimPolicy string

const (
	// TrimDiffPatch keeps the first chunk verbatim and replaces each later
	// chunk with a unified line-diff against its original predecessor.
	TrimDiffPatch TrimPolicy = "diff_patch"
	// TrimKeepHead keeps chunks from the front while the token budget holds.
	TrimKeepHead TrimPolicy = "keep_head"
	// TrimKeepTail keeps the most recent chunks while the token budget holds.
	TrimKeepTail TrimPolicy = "keep_tail"
)

// Compressor applies an optional dedup pass followed by a trim pass.
// Budget <= 0 disables budget trimming for the keep-head/keep-tail policies.
type Compressor struct {
	Dedup  DedupStrategy
	Trim   TrimPolicy
	Budget int
}

// New returns a compressor with the stock policy: hash dedup plus diff-patch
// trimming.
func New() *Compressor {
	return &Compressor{Dedup: DedupHash, Trim: TrimDiffPatch}
}

// Compress returns a new slice; the input is never modified.
func (c *Compressor) Compress(chunks []string) []string {
	if c.Dedup == DedupHash {
		chunks = hashDedupe(chunks)
	}

	switch c.Trim {
	case TrimKeepHead:
		return c.keepHead(chunks)
	case TrimKeepTail:
		return c.keepTail(chunks)
	case TrimDiffPatch:
		return diffPatch(chunks)
	default:
		return append([]string(nil), chunks...)
	}
}

// hashDedupe keeps the first occurrence of each distinct chunk, preserving
// relative order. Idempotent: deduping a deduped sequence is a no-op.
func hashDedupe(chunks []string) []string {
	seen := make(map[string]struct{}, len(chunks))
	deduped := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		h := utils.HashText(chunk)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		deduped = append(deduped, chunk)
	}
	return deduped
}

// diffPatch diffs each chunk against the preceding original chunk, not the
// preceding diff, so near-duplicate successive turns collapse to small
// patches. Individual patches are not readable without their predecessor.
func diffPatch(chunks []string) []string {
	if len(chunks) == 0 {
		return []string{}
	}
	patches := make([]string, 0, len(chunks))
	patches = append(patches, chunks[0])
	base := chunks[0]
	for _, chunk := range chunks[1:] {
		patches = append(patches, Diff(base, chunk))
		base = chunk
	}
	return patches
}

func (c *Compressor) keepHead(chunks []string) []string {
	if c.Budget <= 0 {
		return append([]string(nil), chunks...)
	}
	out := make([]string, 0, len(chunks))
	total := 0
	for _, chunk := range chunks {
		total += utils.CountTokens(chunk)
		if total > c.Budget {
			break
		}
		out = append(out, chunk)
	}
	return out
}

func (c *Compressor) keepTail(chunks []string) []string {
	if c.Budget <= 0 {
		return append([]string(nil), chunks...)
	}
	total := 0
	start := len(chunks)
	for i := len(chunks) - 1; i >= 0; i-- {
		total += utils.CountTokens(chunks[i])
		if total > c.Budget {
			break
		}
		start = i
	}
	return append([]string(nil), chunks[start:]...)
}
