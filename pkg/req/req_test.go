package req

import (
	"strings"
	"testing"
)

type lifecycleMsg struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
	Status         string `json:"status" validate:"required,oneof=active cancelled suspended"`
}

func TestDecodeBytes(t *testing.T) {
	msg, err := DecodeBytes[lifecycleMsg]([]byte(`{"subscription_id":"sub_1","status":"cancelled"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.SubscriptionID != "sub_1" || msg.Status != "cancelled" {
		t.Fatalf("unexpected payload: %+v", msg)
	}
}

func TestDecodeBytesRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"subscription_id":`},
		{"missing id", `{"status":"active"}`},
		{"bad status", `{"subscription_id":"sub_1","status":"paused"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeBytes[lifecycleMsg]([]byte(tt.body)); err == nil {
				t.Fatalf("expected error for %s", tt.body)
			}
		})
	}
}

func TestFieldErrors(t *testing.T) {
	err := IsValid(lifecycleMsg{Status: "nope"})
	fields := FieldErrors(err)
	if fields["SubscriptionID"] != "required" {
		t.Errorf("SubscriptionID tag = %q", fields["SubscriptionID"])
	}
	if fields["Status"] != "oneof" {
		t.Errorf("Status tag = %q", fields["Status"])
	}
}

func TestDecode(t *testing.T) {
	msg, err := Decode[lifecycleMsg](strings.NewReader(`{"subscription_id":"x","status":"active"}`))
	if err != nil || msg.SubscriptionID != "x" {
		t.Fatalf("Decode = %+v, %v", msg, err)
	}
}
