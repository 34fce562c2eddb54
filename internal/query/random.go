// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package query

import "fmt"

// Random ordering must be deterministic for a given seed so consecutive
// pages of the same shuffle neither repeat nor drop rows. The hash is a
// linear-congruential mix of the numeric entity ID and the seed, reduced
// modulo a signed-32-bit prime: intermediates stay in BIGINT, the result in
// INTEGER range, so the store never overflows its integer type.
const (
	randomMultiplier = 1103515245
	randomModulus    = 2147483647
)

// randomOrderExpr returns the ORDER BY expression for the seeded shuffle.
// Non-numeric IDs hash to NULL and group at the end, still tie-broken by id.
func randomOrderExpr(alias string) string {
	return fmt.Sprintf("((TRY_CAST(%s.id AS BIGINT) * %d + ?) %% %d)",
		alias, randomMultiplier, randomModulus)
}

// RandomRank mirrors randomOrderExpr in Go for tests and in-process
// ordering checks. ok is false for non-numeric IDs.
func RandomRank(id string, seed int64) (int32, bool) {
	var n int64
	for _, c := range id {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
		if n > randomModulus {
			n %= randomModulus
		}
	}
	rank := (n*randomMultiplier + seed) % randomModulus
	if rank < 0 {
		rank += randomModulus
	}
	return int32(rank), true
}
