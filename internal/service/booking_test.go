package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/knowloop/internal/apperror"
	"github.com/sakif/knowloop/internal/model"
)

func newBookingService(t *testing.T) (*BookingService, *mockSessionRepo, *mockBookingRepo, *mockMaterialRepo) {
	t.Helper()
	sessions := newMockSessionRepo()
	bookings := newMockBookingRepo()
	materials := newMockMaterialRepo()
	svc := NewBookingService(bookings, sessions, materials, testLogger())
	return svc, sessions, bookings, materials
}

func TestBook_Success(t *testing.T) {
	svc, sessions, _, _ := newBookingService(t)
	session := approvedSession(t, sessions, "tutor@example.com", "30")

	booking, err := svc.Book(context.Background(), session.ID, "student@example.com")
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}

	if booking.SessionTitle != session.Title {
		t.Errorf("SessionTitle = %q, want %q", booking.SessionTitle, session.Title)
	}
	if booking.TutorEmail != "tutor@example.com" {
		t.Errorf("TutorEmail = %q, want tutor's email", booking.TutorEmail)
	}
	if booking.PaymentStatus != model.PaymentUnpaid {
		t.Errorf("PaymentStatus = %q, want unpaid for priced session", booking.PaymentStatus)
	}
}

func TestBook_FreeSessionStartsUnpaid(t *testing.T) {
	svc, sessions, _, _ := newBookingService(t)
	session := approvedSession(t, sessions, "tutor@example.com", model.FreeFee)

	booking, err := svc.Book(context.Background(), session.ID, "student@example.com")
	if err != nil {
		t.Fatalf("Book() error = %v", err)
	}
	if booking.PaymentStatus != model.PaymentUnpaid {
		t.Errorf("PaymentStatus = %q, want unpaid — free access comes from the fee, not payment status", booking.PaymentStatus)
	}
}

func TestCancel_FreeBookingAllowed(t *testing.T) {
	svc, sessions, _, _ := newBookingService(t)
	session := approvedSession(t, sessions, "tutor@example.com", model.FreeFee)
	if _, err := svc.Book(context.Background(), session.ID, "student@example.com"); err != nil {
		t.Fatalf("setup: Book() error = %v", err)
	}

	if err := svc.Cancel(context.Background(), session.ID, "student@example.com"); err != nil {
		t.Fatalf("Cancel() error = %v, free bookings stay unpaid and cancellable", err)
	}

	booked, err := svc.IsBooked(context.Background(), session.ID, "student@example.com")
	if err != nil {
		t.Fatalf("IsBooked() error = %v", err)
	}
	if booked {
		t.Error("booking should be gone after cancel")
	}
}

func TestBook_DuplicateIsConflict(t *testing.T) {
	svc, sessions, _, _ := newBookingService(t)
	session := approvedSession(t, sessions, "tutor@example.com", "30")

	if _, err := svc.Book(context.Background(), session.ID, "student@example.com"); err != nil {
		t.Fatalf("setup: Book() error = %v", err)
	}

	_, err := svc.Book(context.Background(), session.ID, "student@example.com")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestBook_PendingSessionIsConflict(t *testing.T) {
	svc, sessions, _, _ := newBookingService(t)
	session := pendingSession(t, sessions, "tutor@example.com")

	_, err := svc.Book(context.Background(), session.ID, "student@example.com")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestBook_OwnSessionIsConflict(t *testing.T) {
	svc, sessions, _, _ := newBookingService(t)
	session := approvedSession(t, sessions, "tutor@example.com", "30")

	_, err := svc.Book(context.Background(), session.ID, "tutor@example.com")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestBook_MissingSessionIsNotFound(t *testing.T) {
	svc, _, _, _ := newBookingService(t)

	_, err := svc.Book(context.Background(), "nonexistent", "student@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCancel_UnpaidBooking(t *testing.T) {
	svc, sessions, _, _ := newBookingService(t)
	session := approvedSession(t, sessions, "tutor@example.com", "30")
	if _, err := svc.Book(context.Background(), session.ID, "student@example.com"); err != nil {
		t.Fatalf("setup: Book() error = %v", err)
	}

	if err := svc.Cancel(context.Background(), session.ID, "student@example.com"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	booked, err := svc.IsBooked(context.Background(), session.ID, "student@example.com")
	if err != nil {
		t.Fatalf("IsBooked() error = %v", err)
	}
	if booked {
		t.Error("booking should be gone after cancel")
	}
}

func TestCancel_PaidBookingIsConflict(t *testing.T) {
	svc, sessions, _, _ := newBookingService(t)
	session := approvedSession(t, sessions, "tutor@example.com", "30")
	if _, err := svc.Book(context.Background(), session.ID, "student@example.com"); err != nil {
		t.Fatalf("setup: Book() error = %v", err)
	}
	if err := svc.MarkPaid(context.Background(), session.ID, "student@example.com"); err != nil {
		t.Fatalf("setup: MarkPaid() error = %v", err)
	}

	err := svc.Cancel(context.Background(), session.ID, "student@example.com")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestCancel_MissingBookingIsNotFound(t *testing.T) {
	svc, sessions, _, _ := newBookingService(t)
	session := approvedSession(t, sessions, "tutor@example.com", "30")

	err := svc.Cancel(context.Background(), session.ID, "student@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestCanAccessMaterials_Gate(t *testing.T) {
	svc, sessions, _, _ := newBookingService(t)
	free := approvedSession(t, sessions, "tutor@example.com", model.FreeFee)
	priced := approvedSession(t, sessions, "tutor@example.com", "30")

	student := "student@example.com"
	if _, err := svc.Book(context.Background(), free.ID, student); err != nil {
		t.Fatalf("setup: Book() error = %v", err)
	}
	if _, err := svc.Book(context.Background(), priced.ID, student); err != nil {
		t.Fatalf("setup: Book() error = %v", err)
	}

	tests := []struct {
		name      string
		sessionID string
		student   string
		want      bool
	}{
		{"free session, booked", free.ID, student, true},
		{"priced session, unpaid", priced.ID, student, false},
		{"no booking at all", free.ID, "stranger@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CanAccessMaterials(context.Background(), tt.sessionID, tt.student)
			if err != nil {
				t.Fatalf("CanAccessMaterials() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CanAccessMaterials() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanAccessMaterials_PaidBookingOpensGate(t *testing.T) {
	svc, sessions, _, _ := newBookingService(t)
	session := approvedSession(t, sessions, "tutor@example.com", "30")
	student := "student@example.com"
	if _, err := svc.Book(context.Background(), session.ID, student); err != nil {
		t.Fatalf("setup: Book() error = %v", err)
	}
	if err := svc.MarkPaid(context.Background(), session.ID, student); err != nil {
		t.Fatalf("setup: MarkPaid() error = %v", err)
	}

	got, err := svc.CanAccessMaterials(context.Background(), session.ID, student)
	if err != nil {
		t.Fatalf("CanAccessMaterials() error = %v", err)
	}
	if !got {
		t.Error("paid booking should open the gate")
	}
}

func TestCanAccessMaterials_DanglingBookingDenied(t *testing.T) {
	svc, sessions, _, _ := newBookingService(t)
	session := approvedSession(t, sessions, "tutor@example.com", "30")
	student := "student@example.com"
	if _, err := svc.Book(context.Background(), session.ID, student); err != nil {
		t.Fatalf("setup: Book() error = %v", err)
	}
	if err := svc.MarkPaid(context.Background(), session.ID, student); err != nil {
		t.Fatalf("setup: MarkPaid() error = %v", err)
	}

	// The session is deleted out from under the paid booking.
	if err := sessions.Delete(context.Background(), session.ID); err != nil {
		t.Fatalf("setup: deleting session: %v", err)
	}

	got, err := svc.CanAccessMaterials(context.Background(), session.ID, student)
	if err != nil {
		t.Fatalf("CanAccessMaterials() error = %v", err)
	}
	if got {
		t.Error("a dangling booking must never open the gate, paid or not")
	}
}

func TestAccessibleMaterials_FiltersByGate(t *testing.T) {
	svc, sessions, _, materials := newBookingService(t)
	free := approvedSession(t, sessions, "tutor@example.com", model.FreeFee)
	priced := approvedSession(t, sessions, "tutor@example.com", "30")

	materials.Create(context.Background(), &model.Material{SessionID: free.ID, TutorEmail: "tutor@example.com", Title: "free notes"})
	materials.Create(context.Background(), &model.Material{SessionID: priced.ID, TutorEmail: "tutor@example.com", Title: "paid notes"})

	student := "student@example.com"
	if _, err := svc.Book(context.Background(), free.ID, student); err != nil {
		t.Fatalf("setup: Book() error = %v", err)
	}
	if _, err := svc.Book(context.Background(), priced.ID, student); err != nil {
		t.Fatalf("setup: Book() error = %v", err)
	}

	got, err := svc.AccessibleMaterials(context.Background(), student)
	if err != nil {
		t.Fatalf("AccessibleMaterials() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("AccessibleMaterials() returned %d materials, want 1", len(got))
	}
	if got[0].Title != "free notes" {
		t.Errorf("Title = %q, want the free session's material", got[0].Title)
	}
}
