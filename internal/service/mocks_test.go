package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/sakif/knowloop/internal/apperror"
	"github.com/sakif/knowloop/internal/model"
	"github.com/sakif/knowloop/internal/repository"
)

// In-memory mocks for the repository interfaces. Hand-written rather than
// generated so each test reads as plain Go; they mirror the sqlite stores'
// documented behavior (NotFound on missing rows, Conflict on duplicate
// bookings, conditional transitions reporting false).

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ---- sessions ----

type mockSessionRepo struct {
	sessions map[string]*model.StudySession
	nextID   int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.StudySession)}
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.StudySession) error {
	m.nextID++
	session.ID = fmt.Sprintf("sess-%d", m.nextID)
	stored := *session
	m.sessions[session.ID] = &stored
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.StudySession, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	result := *session
	return &result, nil
}

func (m *mockSessionRepo) List(_ context.Context, filter repository.SessionFilter) ([]model.StudySession, error) {
	result := make([]model.StudySession, 0, len(m.sessions))
	for _, s := range m.sessions {
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

func (m *mockSessionRepo) Approve(_ context.Context, id, fee string) (bool, error) {
	session, ok := m.sessions[id]
	if !ok || session.Status != model.StatusPending {
		return false, nil
	}
	session.Status = model.StatusApproved
	session.Fee = fee
	return true, nil
}

func (m *mockSessionRepo) Reject(_ context.Context, id, reason, feedback string) (bool, error) {
	session, ok := m.sessions[id]
	if !ok || session.Status != model.StatusPending {
		return false, nil
	}
	session.Status = model.StatusRejected
	session.RejectionReason = reason
	session.RejectionFeedback = feedback
	return true, nil
}

func (m *mockSessionRepo) MarkPending(_ context.Context, id string) (bool, error) {
	session, ok := m.sessions[id]
	if !ok || session.Status != model.StatusRejected {
		return false, nil
	}
	session.Status = model.StatusPending
	session.RejectionReason = ""
	session.RejectionFeedback = ""
	return true, nil
}

func (m *mockSessionRepo) UpdateFee(_ context.Context, id, fee string) error {
	session, ok := m.sessions[id]
	if !ok {
		return apperror.NotFound("session", id)
	}
	session.Fee = fee
	return nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return apperror.NotFound("session", id)
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) AppendReview(_ context.Context, id string, review model.Review) (*model.StudySession, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	session.Reviews = append(session.Reviews, review)
	var total float64
	for _, r := range session.Reviews {
		total += r.Rating
	}
	session.AverageRating = math.Round(total/float64(len(session.Reviews))*10) / 10
	result := *session
	return &result, nil
}

// ---- bookings ----

type mockBookingRepo struct {
	bookings map[string]*model.BookedSession // key: sessionID + "|" + studentEmail
	nextID   int
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{bookings: make(map[string]*model.BookedSession)}
}

func bookingKey(sessionID, studentEmail string) string {
	return sessionID + "|" + studentEmail
}

func (m *mockBookingRepo) Create(_ context.Context, booking *model.BookedSession) error {
	key := bookingKey(booking.SessionID, booking.StudentEmail)
	if _, ok := m.bookings[key]; ok {
		return apperror.Conflict("session already booked")
	}
	m.nextID++
	booking.ID = fmt.Sprintf("book-%d", m.nextID)
	stored := *booking
	m.bookings[key] = &stored
	return nil
}

func (m *mockBookingRepo) GetBySessionAndStudent(_ context.Context, sessionID, studentEmail string) (*model.BookedSession, error) {
	booking, ok := m.bookings[bookingKey(sessionID, studentEmail)]
	if !ok {
		return nil, apperror.NotFound("booking", sessionID)
	}
	result := *booking
	return &result, nil
}

func (m *mockBookingRepo) ListByStudent(_ context.Context, studentEmail string) ([]model.BookedSession, error) {
	result := make([]model.BookedSession, 0)
	for _, b := range m.bookings {
		if b.StudentEmail == studentEmail {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (m *mockBookingRepo) DeleteUnpaid(_ context.Context, sessionID, studentEmail string) (bool, error) {
	key := bookingKey(sessionID, studentEmail)
	booking, ok := m.bookings[key]
	if !ok || booking.PaymentStatus != model.PaymentUnpaid {
		return false, nil
	}
	delete(m.bookings, key)
	return true, nil
}

func (m *mockBookingRepo) SetPaymentStatus(_ context.Context, sessionID, studentEmail string, status model.PaymentStatus) (bool, error) {
	booking, ok := m.bookings[bookingKey(sessionID, studentEmail)]
	if !ok {
		return false, nil
	}
	booking.PaymentStatus = status
	return true, nil
}

// ---- materials ----

type mockMaterialRepo struct {
	materials map[string]*model.Material
	nextID    int
}

func newMockMaterialRepo() *mockMaterialRepo {
	return &mockMaterialRepo{materials: make(map[string]*model.Material)}
}

func (m *mockMaterialRepo) Create(_ context.Context, material *model.Material) error {
	m.nextID++
	material.ID = fmt.Sprintf("mat-%d", m.nextID)
	stored := *material
	m.materials[material.ID] = &stored
	return nil
}

func (m *mockMaterialRepo) GetByID(_ context.Context, id string) (*model.Material, error) {
	material, ok := m.materials[id]
	if !ok {
		return nil, apperror.NotFound("material", id)
	}
	result := *material
	return &result, nil
}

func (m *mockMaterialRepo) Update(_ context.Context, id, title, link string) error {
	material, ok := m.materials[id]
	if !ok {
		return apperror.NotFound("material", id)
	}
	material.Title = title
	material.Link = link
	return nil
}

func (m *mockMaterialRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.materials[id]; !ok {
		return apperror.NotFound("material", id)
	}
	delete(m.materials, id)
	return nil
}

func (m *mockMaterialRepo) ListByTutor(_ context.Context, tutorEmail string) ([]model.Material, error) {
	result := make([]model.Material, 0)
	for _, mat := range m.materials {
		if mat.TutorEmail == tutorEmail {
			result = append(result, *mat)
		}
	}
	return result, nil
}

func (m *mockMaterialRepo) ListAll(_ context.Context) ([]model.Material, error) {
	result := make([]model.Material, 0, len(m.materials))
	for _, mat := range m.materials {
		result = append(result, *mat)
	}
	return result, nil
}

func (m *mockMaterialRepo) ListBySessionIDs(_ context.Context, sessionIDs []string) ([]model.Material, error) {
	wanted := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		wanted[id] = true
	}
	result := make([]model.Material, 0)
	for _, mat := range m.materials {
		if wanted[mat.SessionID] {
			result = append(result, *mat)
		}
	}
	return result, nil
}

// ---- notes ----

type mockNoteRepo struct {
	notes  map[string]*model.Note
	nextID int
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{notes: make(map[string]*model.Note)}
}

func (m *mockNoteRepo) Create(_ context.Context, note *model.Note) error {
	m.nextID++
	note.ID = fmt.Sprintf("note-%d", m.nextID)
	stored := *note
	m.notes[note.ID] = &stored
	return nil
}

func (m *mockNoteRepo) GetByID(_ context.Context, id string) (*model.Note, error) {
	note, ok := m.notes[id]
	if !ok {
		return nil, apperror.NotFound("note", id)
	}
	result := *note
	return &result, nil
}

func (m *mockNoteRepo) ListByEmail(_ context.Context, email string) ([]model.Note, error) {
	result := make([]model.Note, 0)
	for _, n := range m.notes {
		if n.Email == email {
			result = append(result, *n)
		}
	}
	return result, nil
}

func (m *mockNoteRepo) Update(_ context.Context, id, title, description string) error {
	note, ok := m.notes[id]
	if !ok {
		return apperror.NotFound("note", id)
	}
	note.Title = title
	note.Description = description
	return nil
}

func (m *mockNoteRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.notes[id]; !ok {
		return apperror.NotFound("note", id)
	}
	delete(m.notes, id)
	return nil
}

// ---- users ----

type mockUserRepo struct {
	users  map[string]*model.User // key: email
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Upsert(_ context.Context, user *model.User) (bool, error) {
	if existing, ok := m.users[user.Email]; ok {
		*user = *existing
		return false, nil
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.Role = model.RoleStudent
	stored := *user
	m.users[user.Email] = &stored
	return true, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	user, ok := m.users[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	result := *user
	return &result, nil
}

func (m *mockUserRepo) RoleByEmail(_ context.Context, email string) (model.Role, error) {
	user, ok := m.users[email]
	if !ok {
		return "", apperror.NotFound("user", email)
	}
	return user.Role, nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, email, name, photo string) error {
	user, ok := m.users[email]
	if !ok {
		return apperror.NotFound("user", email)
	}
	user.Name = name
	user.Photo = photo
	return nil
}

func (m *mockUserRepo) UpdateRole(_ context.Context, id string, role model.Role) error {
	for _, user := range m.users {
		if user.ID == id {
			user.Role = role
			return nil
		}
	}
	return apperror.NotFound("user", id)
}

func (m *mockUserRepo) ListByRole(_ context.Context, role model.Role) ([]model.User, error) {
	result := make([]model.User, 0)
	for _, user := range m.users {
		if user.Role == role {
			result = append(result, *user)
		}
	}
	return result, nil
}

func (m *mockUserRepo) Search(_ context.Context, query string) ([]model.User, error) {
	query = strings.ToLower(query)
	result := make([]model.User, 0)
	for _, user := range m.users {
		if strings.Contains(strings.ToLower(user.Name), query) ||
			strings.Contains(strings.ToLower(user.Email), query) {
			result = append(result, *user)
		}
	}
	return result, nil
}

// ---- transactions ----

type mockTransactionRepo struct {
	transactions []model.Transaction
	nextID       int
}

func newMockTransactionRepo() *mockTransactionRepo {
	return &mockTransactionRepo{}
}

func (m *mockTransactionRepo) Create(_ context.Context, tx *model.Transaction) error {
	m.nextID++
	tx.ID = fmt.Sprintf("txn-%d", m.nextID)
	m.transactions = append(m.transactions, *tx)
	return nil
}

func (m *mockTransactionRepo) ListByStudent(_ context.Context, studentEmail string) ([]model.Transaction, error) {
	result := make([]model.Transaction, 0)
	for _, tx := range m.transactions {
		if tx.StudentEmail == studentEmail {
			result = append(result, tx)
		}
	}
	return result, nil
}

// ---- payment gateway ----

type mockGateway struct {
	lastAmount int64
	err        error
}

func (m *mockGateway) CreateIntent(_ context.Context, amountMinor int64) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.lastAmount = amountMinor
	return fmt.Sprintf("secret_%d", amountMinor), nil
}

// pendingSession seeds a pending session owned by tutorEmail and returns it.
func pendingSession(t *testing.T, repo *mockSessionRepo, tutorEmail string) *model.StudySession {
	t.Helper()
	session := &model.StudySession{
		Title:      "Intro to Algebra",
		TutorEmail: tutorEmail,
		Status:     model.StatusPending,
		Fee:        "0",
		Reviews:    []model.Review{},
	}
	if err := repo.Create(context.Background(), session); err != nil {
		t.Fatalf("setup: seeding session: %v", err)
	}
	return session
}

// approvedSession seeds an approved session with the given fee.
func approvedSession(t *testing.T, repo *mockSessionRepo, tutorEmail, fee string) *model.StudySession {
	t.Helper()
	session := pendingSession(t, repo, tutorEmail)
	if _, err := repo.Approve(context.Background(), session.ID, fee); err != nil {
		t.Fatalf("setup: approving session: %v", err)
	}
	session.Status = model.StatusApproved
	session.Fee = fee
	return session
}
