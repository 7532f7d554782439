package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRateKeepsFourDecimals(t *testing.T) {
	rate := NewRateFromDecimal(decimal.RequireFromString("2.125"))
	if rate.String() != "2.125" {
		t.Fatalf("expected 2.125, got %s", rate.String())
	}
	if got := NewRateFromDecimal(decimal.RequireFromString("1.23456")).String(); got != "1.2346" {
		t.Fatalf("expected rounding at 4 decimals, got %s", got)
	}
	body, err := json.Marshal(rate)
	if err != nil {
		t.Fatalf("marshal rate failed: %v", err)
	}
	if string(body) != `"2.125"` {
		t.Fatalf("unexpected json: %s", string(body))
	}
}

func TestRateUnmarshalAcceptsStringAndNumber(t *testing.T) {
	var payload struct {
		A Rate `json:"a"`
		B Rate `json:"b"`
		C Rate `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"7.5","b":0.0625,"c":null}`), &payload); err != nil {
		t.Fatalf("unmarshal rate failed: %v", err)
	}
	if payload.A.String() != "7.5" || payload.B.String() != "0.0625" || !payload.C.IsZero() {
		t.Fatalf("unexpected rates: %s %s %s", payload.A.String(), payload.B.String(), payload.C.String())
	}
	if _, err := NewRateFromString("ten"); err == nil {
		t.Fatal("expected parse error")
	}
}
