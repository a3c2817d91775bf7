package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ─── Sequential Codes ───────────────────────────────────────────────────────
//
// Loans and fines carry human-readable codes of the form <PREFIX>-<NNN>,
// zero-padded to at least three digits and growing past 999 (BLB-001,
// BLB-999, BLB-1000). The numeric suffix is allocated from the most
// recently issued code of the same entity type; callers must serialize
// allocation (the sqlite stores compute the next code inside the insert
// transaction under a per-sequence lock).

// NextCode returns the code following lastCode for the given prefix.
// An empty or unparseable lastCode starts the sequence at 1.
func NextCode(prefix, lastCode string) string {
	n := 1
	if suffix, ok := strings.CutPrefix(lastCode, prefix+"-"); ok {
		if last, err := strconv.Atoi(suffix); err == nil && last > 0 {
			n = last + 1
		}
	}
	return fmt.Sprintf("%s-%03d", prefix, n)
}
