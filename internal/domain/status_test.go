package domain

import (
	"fmt"
	"testing"
)

func TestBookingTransitions(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		want     bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingPending, BookingCompleted, false},
		{BookingConfirmed, BookingCancelled, true},
		{BookingConfirmed, BookingCompleted, true},
		{BookingConfirmed, BookingPending, false},
		{BookingCancelled, BookingConfirmed, false},
		{BookingCancelled, BookingCancelled, false},
		{BookingCompleted, BookingCancelled, false},
		{BookingStatus("bogus"), BookingConfirmed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStatusesHaveNoExit(t *testing.T) {
	for _, s := range []BookingStatus{BookingCancelled, BookingCompleted} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
		for _, target := range []BookingStatus{BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted} {
			if s.CanTransitionTo(target) {
				t.Fatalf("%s must not transition to %s", s, target)
			}
		}
	}
	if BookingPending.IsTerminal() || BookingConfirmed.IsTerminal() {
		t.Fatalf("pending/confirmed are not terminal")
	}
}

func TestParseBookingStatus(t *testing.T) {
	if s, err := ParseBookingStatus("confirmed"); err != nil || s != BookingConfirmed {
		t.Fatalf("unexpected parse result %q %v", s, err)
	}
	if _, err := ParseBookingStatus("paid"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("create booking: %w", ConflictError{Resource: "seat", Msg: "already booked"})
	if !IsConflict(wrapped) || IsNotFound(wrapped) {
		t.Fatalf("conflict not detected through wrapping")
	}
	if got := wrapped.Error(); got != "create booking: seat conflict: already booked" {
		t.Fatalf("unexpected message %q", got)
	}
	if !IsPolicy(PolicyError{Rule: "cancel_cutoff"}) {
		t.Fatalf("policy not detected")
	}
	if !IsUnauthorized(UnauthorizedError{}) {
		t.Fatalf("unauthorized not detected")
	}
}

func TestRequestContextAccess(t *testing.T) {
	owner := RequestContext{UserID: 7, Role: RolePassenger}
	if !owner.CanAccessOwnedBy(7) || owner.CanAccessOwnedBy(8) {
		t.Fatalf("owner access check wrong")
	}
	if !(RequestContext{Role: RoleAdmin}).CanAccessOwnedBy(99) {
		t.Fatalf("admin should access any booking")
	}
	if (RequestContext{}).CanAccessOwnedBy(0) {
		t.Fatalf("anonymous caller must not match zero owner")
	}
}
