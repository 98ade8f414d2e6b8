package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTransitionResult(t *testing.T) {
	t.Parallel()
	cases := map[string]error{
		"ok":            nil,
		"parse_error":   fmt.Errorf("wrapped: %w", &ParseError{Err: errors.New("x")}),
		"invalid_state": &InvalidStateError{Op: "cancel"},
		"error":         errors.New("disk full"),
	}
	for expected, err := range cases {
		if res := transitionResult(err); res != expected {
			t.Error("result", err, res, expected)
		}
	}
}

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(TransitionsTotal.WithLabelValues("metrics-test", "ok"))
	RecordTransition("metrics-test", nil)
	after := testutil.ToFloat64(TransitionsTotal.WithLabelValues("metrics-test", "ok"))
	if after != before+1 {
		t.Error("counter", before, after)
	}
}
