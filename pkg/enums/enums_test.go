package enums

import "testing"

func TestTransactionTypeRoundTrip(t *testing.T) {
	for _, raw := range []string{"purchase", "deduct", "refund"} {
		parsed, err := ParseTransactionType(raw)
		if err != nil {
			t.Fatalf("ParseTransactionType(%q): %v", raw, err)
		}
		if !parsed.IsValid() {
			t.Fatalf("%q should be valid", raw)
		}
	}
	if _, err := ParseTransactionType("chargeback"); err == nil {
		t.Fatal("expected error for unknown transaction type")
	}
	if TransactionType("usage").IsValid() {
		t.Fatal("usage is not a canonical transaction type")
	}
}

func TestGenerationMode(t *testing.T) {
	if _, err := ParseGenerationMode("basic"); err != nil {
		t.Fatalf("basic should parse: %v", err)
	}
	if _, err := ParseGenerationMode("ultra"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestProjectStatusTransitionsAreNamed(t *testing.T) {
	for _, s := range []ProjectStatus{ProjectStatusDraft, ProjectStatusProcessing, ProjectStatusCompleted, ProjectStatusFailed} {
		if !s.IsValid() {
			t.Fatalf("%q should be valid", s)
		}
	}
	if ProjectStatus("queued").IsValid() {
		t.Fatal("queued is not a project status")
	}
}

func TestPaymentMethod(t *testing.T) {
	if _, err := ParsePaymentMethod("alipay"); err != nil {
		t.Fatalf("alipay should parse: %v", err)
	}
	if _, err := ParsePaymentMethod("cash"); err == nil {
		t.Fatal("expected error for unknown payment method")
	}
}

func TestSubscriptionTier(t *testing.T) {
	if _, err := ParseSubscriptionTier("free"); err != nil {
		t.Fatalf("free should parse: %v", err)
	}
	if SubscriptionTier("vip").IsValid() {
		t.Fatal("vip is not a subscription tier")
	}
}
