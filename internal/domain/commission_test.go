package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCalculateCommission(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"100", "20"},
		{"19.99", "4"},
		{"0.01", "0"},
		{"49.95", "9.99"},
		{"12.34", "2.47"},
	}
	for _, tt := range tests {
		got := CalculateCommission(decimal.RequireFromString(tt.amount), DefaultCommissionRate)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("CalculateCommission(%s) = %s, want %s", tt.amount, got, tt.want)
		}
	}
}

func TestCurrentPeriod(t *testing.T) {
	p := CurrentPeriod(time.Date(2026, time.February, 14, 10, 30, 0, 0, time.UTC))
	wantStart := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, time.February, 28, 23, 59, 59, 999999999, time.UTC)
	if !p.Start.Equal(wantStart) || !p.End.Equal(wantEnd) {
		t.Fatalf("period = %v..%v", p.Start, p.End)
	}
	if !p.Contains(wantEnd) || p.Contains(wantEnd.Add(time.Nanosecond)) {
		t.Fatalf("Contains boundary check failed")
	}
}

func TestCurrentPeriodConvertsToUTC(t *testing.T) {
	// 1 марта 01:00 в UTC+3 это еще 28 февраля по UTC
	loc := time.FixedZone("UTC+3", 3*60*60)
	p := CurrentPeriod(time.Date(2026, time.March, 1, 1, 0, 0, 0, loc))
	if p.Start.Month() != time.February {
		t.Fatalf("expected February period, got %v", p.Start)
	}
}

func TestPeriodForDecember(t *testing.T) {
	p := PeriodFor(2025, time.December)
	if p.End.Year() != 2025 || p.End.Month() != time.December || p.End.Day() != 31 {
		t.Fatalf("unexpected end %v", p.End)
	}
}

func TestParseReferralStatus(t *testing.T) {
	for _, s := range []string{"active", "cancelled", "suspended"} {
		if _, err := ParseReferralStatus(s); err != nil {
			t.Errorf("ParseReferralStatus(%q) error: %v", s, err)
		}
	}
	_, err := ParseReferralStatus("paused")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestValidationErrorsIsInvalidInput(t *testing.T) {
	var verrs ValidationErrors
	verrs.Add("subscription_id", "is required")
	if !errors.Is(verrs, ErrInvalidInput) {
		t.Fatal("ValidationErrors should match ErrInvalidInput")
	}
	if verrs.GetByField("subscription_id") != "is required" {
		t.Fatal("GetByField mismatch")
	}
}
