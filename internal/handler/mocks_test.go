package handler_test

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/sakif/knowloop/internal/apperror"
	"github.com/sakif/knowloop/internal/model"
	"github.com/sakif/knowloop/internal/repository"
)

// Minimal in-memory repositories for exercising handlers through real
// services. Behavior mirrors the sqlite stores: NotFound for missing rows,
// Conflict on duplicate bookings, conditional transitions reporting false.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeSessionRepo struct {
	sessions map[string]*model.StudySession
	nextID   int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.StudySession)}
}

func (f *fakeSessionRepo) Create(_ context.Context, s *model.StudySession) error {
	f.nextID++
	s.ID = fmt.Sprintf("sess-%d", f.nextID)
	stored := *s
	f.sessions[s.ID] = &stored
	return nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id string) (*model.StudySession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	result := *s
	return &result, nil
}

func (f *fakeSessionRepo) List(_ context.Context, filter repository.SessionFilter) ([]model.StudySession, error) {
	result := make([]model.StudySession, 0)
	for _, s := range f.sessions {
		if filter.TutorEmail != "" && s.TutorEmail != filter.TutorEmail {
			continue
		}
		if !filter.All {
			status := filter.Status
			if status == "" {
				status = model.StatusApproved
			}
			if s.Status != status {
				continue
			}
		}
		result = append(result, *s)
	}
	return result, nil
}

func (f *fakeSessionRepo) Approve(_ context.Context, id, fee string) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.Status != model.StatusPending {
		return false, nil
	}
	s.Status = model.StatusApproved
	s.Fee = fee
	return true, nil
}

func (f *fakeSessionRepo) Reject(_ context.Context, id, reason, feedback string) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.Status != model.StatusPending {
		return false, nil
	}
	s.Status = model.StatusRejected
	s.RejectionReason = reason
	s.RejectionFeedback = feedback
	return true, nil
}

func (f *fakeSessionRepo) MarkPending(_ context.Context, id string) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.Status != model.StatusRejected {
		return false, nil
	}
	s.Status = model.StatusPending
	s.RejectionReason = ""
	s.RejectionFeedback = ""
	return true, nil
}

func (f *fakeSessionRepo) UpdateFee(_ context.Context, id, fee string) error {
	s, ok := f.sessions[id]
	if !ok {
		return apperror.NotFound("session", id)
	}
	s.Fee = fee
	return nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return apperror.NotFound("session", id)
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionRepo) AppendReview(_ context.Context, id string, review model.Review) (*model.StudySession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	s.Reviews = append(s.Reviews, review)
	var total float64
	for _, r := range s.Reviews {
		total += r.Rating
	}
	s.AverageRating = math.Round(total/float64(len(s.Reviews))*10) / 10
	result := *s
	return &result, nil
}

type fakeBookingRepo struct {
	bookings map[string]*model.BookedSession
	nextID   int
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[string]*model.BookedSession)}
}

func (f *fakeBookingRepo) key(sessionID, studentEmail string) string {
	return sessionID + "|" + studentEmail
}

func (f *fakeBookingRepo) Create(_ context.Context, b *model.BookedSession) error {
	key := f.key(b.SessionID, b.StudentEmail)
	if _, ok := f.bookings[key]; ok {
		return apperror.Conflict("session already booked")
	}
	f.nextID++
	b.ID = fmt.Sprintf("book-%d", f.nextID)
	stored := *b
	f.bookings[key] = &stored
	return nil
}

func (f *fakeBookingRepo) GetBySessionAndStudent(_ context.Context, sessionID, studentEmail string) (*model.BookedSession, error) {
	b, ok := f.bookings[f.key(sessionID, studentEmail)]
	if !ok {
		return nil, apperror.NotFound("booking", sessionID)
	}
	result := *b
	return &result, nil
}

func (f *fakeBookingRepo) ListByStudent(_ context.Context, studentEmail string) ([]model.BookedSession, error) {
	result := make([]model.BookedSession, 0)
	for _, b := range f.bookings {
		if b.StudentEmail == studentEmail {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (f *fakeBookingRepo) DeleteUnpaid(_ context.Context, sessionID, studentEmail string) (bool, error) {
	key := f.key(sessionID, studentEmail)
	b, ok := f.bookings[key]
	if !ok || b.PaymentStatus != model.PaymentUnpaid {
		return false, nil
	}
	delete(f.bookings, key)
	return true, nil
}

func (f *fakeBookingRepo) SetPaymentStatus(_ context.Context, sessionID, studentEmail string, status model.PaymentStatus) (bool, error) {
	b, ok := f.bookings[f.key(sessionID, studentEmail)]
	if !ok {
		return false, nil
	}
	b.PaymentStatus = status
	return true, nil
}

type fakeMaterialRepo struct {
	materials map[string]*model.Material
	nextID    int
}

func newFakeMaterialRepo() *fakeMaterialRepo {
	return &fakeMaterialRepo{materials: make(map[string]*model.Material)}
}

func (f *fakeMaterialRepo) Create(_ context.Context, m *model.Material) error {
	f.nextID++
	m.ID = fmt.Sprintf("mat-%d", f.nextID)
	stored := *m
	f.materials[m.ID] = &stored
	return nil
}

func (f *fakeMaterialRepo) GetByID(_ context.Context, id string) (*model.Material, error) {
	m, ok := f.materials[id]
	if !ok {
		return nil, apperror.NotFound("material", id)
	}
	result := *m
	return &result, nil
}

func (f *fakeMaterialRepo) Update(_ context.Context, id, title, link string) error {
	m, ok := f.materials[id]
	if !ok {
		return apperror.NotFound("material", id)
	}
	m.Title = title
	m.Link = link
	return nil
}

func (f *fakeMaterialRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.materials[id]; !ok {
		return apperror.NotFound("material", id)
	}
	delete(f.materials, id)
	return nil
}

func (f *fakeMaterialRepo) ListByTutor(_ context.Context, tutorEmail string) ([]model.Material, error) {
	result := make([]model.Material, 0)
	for _, m := range f.materials {
		if m.TutorEmail == tutorEmail {
			result = append(result, *m)
		}
	}
	return result, nil
}

func (f *fakeMaterialRepo) ListAll(_ context.Context) ([]model.Material, error) {
	result := make([]model.Material, 0, len(f.materials))
	for _, m := range f.materials {
		result = append(result, *m)
	}
	return result, nil
}

func (f *fakeMaterialRepo) ListBySessionIDs(_ context.Context, sessionIDs []string) ([]model.Material, error) {
	wanted := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = true
	}
	result := make([]model.Material, 0)
	for _, m := range f.materials {
		if wanted[m.SessionID] {
			result = append(result, *m)
		}
	}
	return result, nil
}

// fakeRoles resolves roles from a fixed map; the guard treats a missing
// entry as an unknown account.
type fakeRoles struct {
	roles map[string]model.Role
}

func (f *fakeRoles) RoleByEmail(_ context.Context, email string) (model.Role, error) {
	role, ok := f.roles[email]
	if !ok {
		return "", apperror.NotFound("user", email)
	}
	return role, nil
}
