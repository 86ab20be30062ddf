package models

import (
	"testing"
	"time"
)

func TestSeverityFor_FixedMapping(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  Severity
	}{
		{EventLoginSuccess, SeverityLow},
		{EventLoginFailed, SeverityMedium},
		{EventRateLimitExceeded, SeverityHigh},
		{EventInvalidToken, SeverityHigh},
		{EventSuspiciousActivity, SeverityCritical},
	}

	for _, tt := range tests {
		if got := SeverityFor(tt.eventType); got != tt.expected {
			t.Errorf("SeverityFor(%s) = %s, want %s", tt.eventType, got, tt.expected)
		}
	}
}

func TestSeverity_String(t *testing.T) {
	if SeverityHigh.String() != "HIGH" {
		t.Errorf("expected HIGH, got %s", SeverityHigh.String())
	}
	if Severity(42).String() != "Severity(42)" {
		t.Errorf("unexpected string for unknown severity: %s", Severity(42).String())
	}
}

func TestSecurityEvent_Escalate(t *testing.T) {
	event := NewSecurityEvent(EventLoginFailed, time.Now()).Escalate()
	if event.Severity != SeverityHigh {
		t.Errorf("expected HIGH after escalation, got %s", event.Severity)
	}

	critical := NewSecurityEvent(EventSuspiciousActivity, time.Now()).Escalate()
	if critical.Severity != SeverityCritical {
		t.Errorf("escalation must cap at CRITICAL, got %s", critical.Severity)
	}
}

func TestSecurityEvent_WithDoesNotMutateOriginal(t *testing.T) {
	base := NewSecurityEvent(EventLoginFailed, time.Now())
	locked := base.With("locked", true)

	if _, ok := base.Metadata["locked"]; ok {
		t.Errorf("base event metadata was mutated")
	}
	if locked.Metadata["locked"] != true {
		t.Errorf("expected locked=true, got %v", locked.Metadata["locked"])
	}
}

func TestEventMetadata_ScanValueRoundTrip(t *testing.T) {
	original := EventMetadata{"reason": "invalid_credentials"}

	value, err := original.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}

	var scanned EventMetadata
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if scanned["reason"] != "invalid_credentials" {
		t.Errorf("expected reason to survive, got %v", scanned["reason"])
	}

	var empty EventMetadata
	if err := empty.Scan(nil); err != nil || empty == nil {
		t.Errorf("Scan(nil) should yield an empty map, got %v (err %v)", empty, err)
	}
}

func TestAccount_IsLockedAndProfile(t *testing.T) {
	now := time.Now()
	future := now.Add(10 * time.Minute)
	past := now.Add(-10 * time.Minute)

	account := &Account{ID: "acct-1", Email: "admin@example.com", PasswordHash: "$2a$secret", LockedUntil: &future}
	if !account.IsLocked(now) {
		t.Errorf("expected account to be locked")
	}
	account.LockedUntil = &past
	if account.IsLocked(now) {
		t.Errorf("expected expired lock to be ignored")
	}

	profile := account.Profile()
	if profile.ID != "acct-1" || profile.Email != "admin@example.com" {
		t.Errorf("unexpected profile: %+v", profile)
	}
}

func TestParseSeverity_RoundTrip(t *testing.T) {
	for s := SeverityLow; s <= SeverityCritical; s++ {
		if got := ParseSeverity(s.String()); got != s {
			t.Errorf("ParseSeverity(%q) = %s, want %s", s.String(), got, s)
		}
	}
	if got := ParseSeverity("bogus"); got != SeverityCritical {
		t.Errorf("unknown label should parse as CRITICAL, got %s", got)
	}
}
