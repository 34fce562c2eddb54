// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package query

import (
	"strconv"
	"strings"
	"testing"
)

func TestRandomRankDeterministic(t *testing.T) {
	a, ok := RandomRank("12345", 42)
	if !ok {
		t.Fatal("numeric id rejected")
	}
	b, _ := RandomRank("12345", 42)
	if a != b {
		t.Errorf("same seed gave %d then %d", a, b)
	}

	c, _ := RandomRank("12345", 43)
	if a == c {
		t.Error("different seeds gave identical ranks")
	}
}

func TestRandomRankRange(t *testing.T) {
	ids := []string{"0", "1", "99", "2147483646", "99999999999999999999"}
	for _, id := range ids {
		for _, seed := range []int64{0, 1, -7, 1 << 40} {
			rank, ok := RandomRank(id, seed)
			if !ok {
				t.Fatalf("id %q rejected", id)
			}
			if rank < 0 || int64(rank) >= randomModulus {
				t.Errorf("rank(%s, %d) = %d out of range", id, seed, rank)
			}
		}
	}
}

func TestRandomRankMatchesOrderExpression(t *testing.T) {
	// Direct int64 evaluation of the ORDER BY arithmetic. The in-loop
	// reduction in RandomRank is congruence-preserving, so ranks must agree
	// even for ids past the modulus.
	ids := []int64{0, 123, 2147483646, 2147483647, 2147483648, 5000000000}
	for _, id := range ids {
		for _, seed := range []int64{0, 7, 987654321} {
			want := (id*randomMultiplier + seed) % randomModulus
			got, ok := RandomRank(strconv.FormatInt(id, 10), seed)
			if !ok {
				t.Fatalf("id %d rejected", id)
			}
			if int64(got) != want {
				t.Errorf("RandomRank(%d, %d) = %d, want %d", id, seed, got, want)
			}
		}
	}
}

func TestRandomRankNonNumeric(t *testing.T) {
	for _, id := range []string{"", "abc", "12a", "-1"} {
		if _, ok := RandomRank(id, 1); ok {
			t.Errorf("id %q accepted", id)
		}
	}
}

func TestRandomOrderExprShape(t *testing.T) {
	expr := randomOrderExpr("s")
	if !strings.Contains(expr, "TRY_CAST(s.id AS BIGINT)") {
		t.Errorf("expr = %s", expr)
	}
	if strings.Count(expr, "?") != 1 {
		t.Errorf("expr must carry exactly one seed placeholder: %s", expr)
	}
}
