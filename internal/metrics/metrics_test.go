// SecKC MHN Relay - Real-time Honeypot Event Relay
// Copyright 2026 SecKC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seckc/mhn-relay

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func histogramCount(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	if err := IdentityCheckDuration.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestSetRelayState(t *testing.T) {
	SetRelayState("connecting")
	SetRelayState("subscribed")

	if got := testutil.ToFloat64(RelayState.WithLabelValues("subscribed")); got != 1 {
		t.Errorf("subscribed = %v, want 1", got)
	}
	for _, s := range []string{"idle", "connecting", "stopped"} {
		if got := testutil.ToFloat64(RelayState.WithLabelValues(s)); got != 0 {
			t.Errorf("%s = %v, want 0", s, got)
		}
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/feeds/recent", "200"))
	RecordAPIRequest("GET", "/feeds/recent", 200, 5*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/feeds/recent", "200"))

	if after-before != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("active delta = %v, want 1", got)
	}
	TrackActiveRequest(false)
}

func TestRecordIdentityCheck(t *testing.T) {
	before := testutil.ToFloat64(IdentityChecks.WithLabelValues("active"))
	observedBefore := histogramCount(t)

	RecordIdentityCheck("active", 20*time.Millisecond)
	RecordIdentityCheck("active", 0)

	if got := testutil.ToFloat64(IdentityChecks.WithLabelValues("active")) - before; got != 2 {
		t.Errorf("identity_checks_total{active} delta = %v, want 2", got)
	}
	if got := histogramCount(t) - observedBefore; got != 1 {
		t.Errorf("duration observations delta = %d, want 1 (zero durations are not observed)", got)
	}
}
