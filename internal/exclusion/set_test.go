// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package exclusion

import (
	"reflect"
	"testing"

	"github.com/curator-app/curator/internal/models"
)

func TestSetFirstReasonWins(t *testing.T) {
	set := newExclusionSet("u1")

	if !set.add(models.KindScene, "10", "", models.ReasonRestricted) {
		t.Fatal("first add returned false")
	}
	if set.add(models.KindScene, "10", "", models.ReasonCascade) {
		t.Error("duplicate add returned true")
	}

	rows := set.sorted()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Reason != models.ReasonRestricted {
		t.Errorf("reason = %q, want restricted", rows[0].Reason)
	}
}

func TestSetGlobalScopeCoversInstances(t *testing.T) {
	set := newExclusionSet("u1")
	set.add(models.KindPerformer, "7", "", models.ReasonHidden)

	if set.add(models.KindPerformer, "7", "main", models.ReasonCascade) {
		t.Error("instance-scoped add should be covered by the global row")
	}
	if !set.contains(models.KindPerformer, "7", "other") {
		t.Error("global row should cover every instance lookup")
	}
	if set.contains(models.KindPerformer, "8", "") {
		t.Error("unrelated id reported as contained")
	}
}

func TestSetScopedDoesNotCoverGlobal(t *testing.T) {
	set := newExclusionSet("u1")
	set.add(models.KindTag, "3", "main", models.ReasonHidden)

	if set.contains(models.KindTag, "3", "") {
		t.Error("instance-scoped row must not satisfy a global lookup")
	}
	if set.contains(models.KindTag, "3", "other") {
		t.Error("instance-scoped row must not cover another instance")
	}
	if !set.contains(models.KindTag, "3", "main") {
		t.Error("scoped row missing for its own instance")
	}
}

func TestSetSortedDeterministic(t *testing.T) {
	set := newExclusionSet("u1")
	set.add(models.KindScene, "2", "", models.ReasonCascade)
	set.add(models.KindPerformer, "1", "main", models.ReasonHidden)
	set.add(models.KindScene, "1", "", models.ReasonCascade)

	rows := set.sorted()
	if rows[0].Kind != models.KindPerformer {
		t.Errorf("first row kind = %q, want performer", rows[0].Kind)
	}
	if rows[1].EntityID != "1" || rows[2].EntityID != "2" {
		t.Errorf("scene rows out of order: %q, %q", rows[1].EntityID, rows[2].EntityID)
	}
}

func TestInvertAllowList(t *testing.T) {
	got := invertAllowList([]string{"St1", "St2", "St3", "St4", "St5"}, []string{"St1", "St2"})
	want := []string{"St3", "St4", "St5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("invertAllowList = %v, want %v", got, want)
	}

	if got := invertAllowList(nil, []string{"a"}); got != nil {
		t.Errorf("empty mirror should invert to nil, got %v", got)
	}
	if got := invertAllowList([]string{"a"}, nil); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("empty allow list should exclude everything, got %v", got)
	}
}

func TestGroupByInstance(t *testing.T) {
	groups := groupByInstance([]entityRef{
		{ID: "1", Instance: ""},
		{ID: "2", Instance: "main"},
		{ID: "3", Instance: "main"},
	})

	if len(groups[""]) != 1 || groups[""][0] != "1" {
		t.Errorf("global group = %v, want [1]", groups[""])
	}
	if len(groups["main"]) != 2 {
		t.Errorf("main group = %v, want two ids", groups["main"])
	}
}

func TestPlaceholders(t *testing.T) {
	if got := placeholders(3); got != "?, ?, ?" {
		t.Errorf("placeholders(3) = %q", got)
	}
	if got := placeholders(1); got != "?" {
		t.Errorf("placeholders(1) = %q", got)
	}
}
