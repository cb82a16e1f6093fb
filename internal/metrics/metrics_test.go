package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/metrics"
)

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveDecision(types.Decision{Building: 1})
	m.ObserveFire(1)
	m.SetOccupancy(1, 3)
	m.ObserveAppend(nil)
	if m.Registry() != nil {
		t.Error("expected nil registry for nil metrics")
	}
}

func TestMetrics_CountsDecisionsAndAppends(t *testing.T) {
	m := metrics.New()

	m.ObserveDecision(types.Decision{Building: 2, Action: types.ActionEnter, Outcome: types.Granted})
	m.ObserveDecision(types.Decision{Building: 2, Action: types.ActionEnter, Outcome: types.Denied, Reason: types.DenialAlreadyInside})
	m.ObserveAppend(nil)
	m.ObserveAppend(errors.New("disk gone"))

	n, err := testutil.GatherAndCount(m.Registry(), "evacsim_access_decisions_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 decision series, got %d", n)
	}

	n, err = testutil.GatherAndCount(m.Registry(), "evacsim_log_append_errors_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Errorf("expected the error counter to be exported, got %d series", n)
	}
}
