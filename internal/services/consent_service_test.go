package services

import (
	"context"
	"testing"
	"time"
)

func TestConsentServiceGrantWithdraw(t *testing.T) {
	store := newStubParticipantStore()
	svc := NewConsentService(store, prefixVerifier{})
	svc.now = func() time.Time { return time.Date(2025, 9, 18, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	res, err := svc.SetConsent(ctx, "P1", "tok-P1", true)
	if err != nil {
		t.Fatalf("SetConsent error: %v", err)
	}
	if !res.Consent || store.responses["P1"].Consent != "ja" {
		t.Fatalf("consent not granted: %+v", store.responses["P1"])
	}
	if _, err := svc.SetConsent(ctx, "P1", "tok-P1", false); err != nil {
		t.Fatalf("withdraw error: %v", err)
	}
	if store.responses["P1"].Consent != "nein" {
		t.Fatalf("consent not withdrawn")
	}
	if len(store.audit) != 2 || store.audit[0].Action != "consent_grant" || store.audit[1].Action != "consent_withdraw" {
		t.Fatalf("unexpected audit trail: %+v", store.audit)
	}
}

func TestConsentServiceRejectsForeignToken(t *testing.T) {
	store := newStubParticipantStore()
	svc := NewConsentService(store, prefixVerifier{})
	if _, err := svc.SetConsent(context.Background(), "P1", "tok-P2", true); !isCode(err, ErrorForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if store.responses["P1"].Consent != "nein" {
		t.Fatalf("consent changed without authorization")
	}
	if _, err := svc.SetConsent(context.Background(), "P7", "tok-P7", true); !isCode(err, ErrorNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
