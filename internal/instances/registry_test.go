// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

package instances

import (
	"testing"
	"time"

	"github.com/curator-app/curator/internal/config"
	"github.com/curator-app/curator/internal/models"
)

func testUpstream() *config.UpstreamConfig {
	return &config.UpstreamConfig{
		RequestTimeout:          5 * time.Second,
		RateLimit:               10,
		RateBurst:               10,
		BreakerFailureThreshold: 5,
		BreakerOpenTimeout:      time.Second,
	}
}

func TestPutGetRemove(t *testing.T) {
	r := New()
	upstream := testUpstream()

	r.Put(models.Instance{ID: "main", BaseURL: "http://a", Enabled: true}, upstream)

	e, ok := r.Get("main")
	if !ok || e.Instance.BaseURL != "http://a" || e.Client == nil {
		t.Fatalf("Get after Put = %+v, %v", e, ok)
	}

	r.Put(models.Instance{ID: "main", BaseURL: "http://b", Enabled: true}, upstream)
	if e, _ := r.Get("main"); e.Instance.BaseURL != "http://b" {
		t.Errorf("Put did not replace entry: %+v", e.Instance)
	}

	r.Remove("main")
	if _, ok := r.Get("main"); ok {
		t.Error("entry survived Remove")
	}
}

func TestPutDisabledRemoves(t *testing.T) {
	r := New()
	upstream := testUpstream()

	r.Put(models.Instance{ID: "main", BaseURL: "http://a", Enabled: true}, upstream)
	r.Put(models.Instance{ID: "main", BaseURL: "http://a", Enabled: false}, upstream)

	if _, ok := r.Get("main"); ok {
		t.Error("disabled instance still registered")
	}
}

func TestAllOrderedByPriority(t *testing.T) {
	r := New()
	upstream := testUpstream()

	r.Put(models.Instance{ID: "low", Enabled: true, Priority: 1}, upstream)
	r.Put(models.Instance{ID: "b-high", Enabled: true, Priority: 9}, upstream)
	r.Put(models.Instance{ID: "a-high", Enabled: true, Priority: 9}, upstream)

	ids := r.IDs()
	want := []string{"a-high", "b-high", "low"}
	if len(ids) != len(want) {
		t.Fatalf("IDs = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
