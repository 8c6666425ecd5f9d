package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/event"
)

type outboxRow struct {
	env          event.Envelope
	storedAt     time.Time
	dispatchedAt *time.Time
}

type memState struct {
	userOrder    []uuid.UUID
	members      map[uuid.UUID]domain.Member
	apptOrder    []uuid.UUID
	appointments map[uuid.UUID]*domain.Appointment
	records      []*domain.MedicalRecord
	messages     []*domain.ChatMessage
	outbox       []outboxRow
}

// snapshot copies the containers. Stored entities are never mutated in place,
// so sharing the pointers is safe.
func (s *memState) snapshot() memState {
	c := memState{
		userOrder:    append([]uuid.UUID(nil), s.userOrder...),
		members:      make(map[uuid.UUID]domain.Member, len(s.members)),
		apptOrder:    append([]uuid.UUID(nil), s.apptOrder...),
		appointments: make(map[uuid.UUID]*domain.Appointment, len(s.appointments)),
		records:      append([]*domain.MedicalRecord(nil), s.records...),
		messages:     append([]*domain.ChatMessage(nil), s.messages...),
		outbox:       append([]outboxRow(nil), s.outbox...),
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	return c
}

// Memory is an in-process Database. Transactions are serialized and roll
// back on error.
type Memory struct {
	name string
	now  func() time.Time

	mu       sync.RWMutex
	state    memState
	failNext error
}

func NewMemory(name string) *Memory {
	return &Memory{
		name: name,
		now:  time.Now,
		state: memState{
			members:      make(map[uuid.UUID]domain.Member),
			appointments: make(map[uuid.UUID]*domain.Appointment),
		},
	}
}

func (m *Memory) Name() string { return m.name }

// FailNextTx makes the next InTx apply its changes, roll them back and
// return err.
func (m *Memory) FailNextTx(err error) {
	m.mu.Lock()
	m.failNext = err
	m.mu.Unlock()
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() {}

func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context, w Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.state.snapshot()
	err := fn(ctx, &memWriter{st: &m.state, now: m.now})
	if err == nil && m.failNext != nil {
		err = m.failNext
		m.failNext = nil
	}
	if err != nil {
		m.state = before
		return err
	}
	return nil
}

func (m *Memory) ListUsers(ctx context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.User, 0, len(m.state.userOrder))
	for _, id := range m.state.userOrder {
		out = append(out, *m.state.members[id].Identity())
	}
	return out, nil
}

func (m *Memory) GetMember(ctx context.Context, id uuid.UUID) (domain.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.state.members[id]
	if !ok {
		return nil, ErrMemberNotFound
	}
	return domain.CloneMember(mem), nil
}

func (m *Memory) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mem := m.state.byEmail(email); mem != nil {
		u := *mem.Identity()
		return &u, nil
	}
	return nil, ErrMemberNotFound
}

func (m *Memory) ListDoctors(ctx context.Context, f DoctorFilter) ([]*domain.Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Doctor
	for _, id := range m.state.userOrder {
		d, ok := m.state.members[id].(*domain.Doctor)
		if !ok {
			continue
		}
		if f.Specialty != domain.SpecialtyNone && d.Specialty != f.Specialty {
			continue
		}
		if f.AvailableOnly && !d.Availability.IsAvailable {
			continue
		}
		out = append(out, domain.CloneMember(d).(*domain.Doctor))
	}
	return out, nil
}

func (m *Memory) GetDoctor(ctx context.Context, id uuid.UUID) (*domain.Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.state.members[id].(*domain.Doctor)
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return domain.CloneMember(d).(*domain.Doctor), nil
}

func (m *Memory) GetAppointment(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.state.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return a.Clone(), nil
}

func (m *Memory) ListAppointments(ctx context.Context, f AppointmentFilter) ([]*domain.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Appointment
	for _, id := range m.state.apptOrder {
		a := m.state.appointments[id]
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		if f.PatientID != nil && (a.PatientID == nil || *a.PatientID != *f.PatientID) {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PreferredTime.Before(out[j].PreferredTime)
	})
	return out, nil
}

func (m *Memory) FindActiveAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*domain.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Appointment
	for _, id := range m.state.apptOrder {
		a := m.state.appointments[id]
		if a.DoctorID != doctorID || !a.Status.Active() {
			continue
		}
		if a.PreferredTime.After(from) && a.PreferredTime.Before(to) {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func (m *Memory) ListMedicalRecords(ctx context.Context, patientID uuid.UUID, t domain.RecordType) ([]*domain.MedicalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.MedicalRecord
	for _, r := range m.state.records {
		if r.PatientID != patientID || (t != "" && r.Type != t) {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Time().After(out[j].Date.Time())
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) ListMessages(ctx context.Context, a, b uuid.UUID) ([]*domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.ChatMessage
	for _, msg := range m.state.messages {
		if msg.Between(a, b) {
			c := *msg
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (m *Memory) ListUndispatched(ctx context.Context, olderThan time.Time, limit int) ([]event.Envelope, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []event.Envelope
	for _, row := range m.state.outbox {
		if len(out) == limit {
			break
		}
		if row.dispatchedAt == nil && !row.storedAt.After(olderThan) {
			out = append(out, row.env)
		}
	}
	return out, nil
}

func (m *Memory) MarkDispatched(ctx context.Context, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	now := m.now()
	for i := range m.state.outbox {
		if _, ok := want[m.state.outbox[i].env.ID]; ok && m.state.outbox[i].dispatchedAt == nil {
			m.state.outbox[i].dispatchedAt = &now
		}
	}
	return nil
}

// Outbox returns every stored envelope with its delivery flag.
func (m *Memory) Outbox() (envs []event.Envelope, dispatched []bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, row := range m.state.outbox {
		envs = append(envs, row.env)
		dispatched = append(dispatched, row.dispatchedAt != nil)
	}
	return envs, dispatched
}

func (s *memState) byEmail(email string) domain.Member {
	for _, id := range s.userOrder {
		mem := s.members[id]
		if strings.EqualFold(mem.Identity().Email, email) {
			return mem
		}
	}
	return nil
}

type memWriter struct {
	st  *memState
	now func() time.Time
}

func (w *memWriter) InsertMember(ctx context.Context, m domain.Member) (int, error) {
	u := m.Identity()
	if _, ok := w.st.members[u.ID]; ok {
		return 0, ErrDuplicateID
	}
	if w.st.byEmail(u.Email) != nil {
		return 0, ErrEmailTaken
	}
	w.st.members[u.ID] = domain.CloneMember(m)
	w.st.userOrder = append(w.st.userOrder, u.ID)
	return 1, nil
}

func (w *memWriter) UpdateMember(ctx context.Context, m domain.Member) (int, error) {
	u := m.Identity()
	if _, ok := w.st.members[u.ID]; !ok {
		return 0, ErrMemberNotFound
	}
	if other := w.st.byEmail(u.Email); other != nil && other.Identity().ID != u.ID {
		return 0, ErrEmailTaken
	}
	c := domain.CloneMember(m)
	// The patient count only moves through IncrementPatients.
	if d, ok := c.(*domain.Doctor); ok {
		if cur, ok := w.st.members[u.ID].(*domain.Doctor); ok {
			d.TotalPatients = cur.TotalPatients
		}
	}
	w.st.members[u.ID] = c
	return 1, nil
}

func (w *memWriter) IncrementPatients(ctx context.Context, doctorID uuid.UUID, at time.Time) (int, error) {
	d, ok := w.st.members[doctorID].(*domain.Doctor)
	if !ok {
		return 0, ErrDoctorNotFound
	}
	c := domain.CloneMember(d).(*domain.Doctor)
	c.RecordCompletedVisit(at)
	w.st.members[doctorID] = c
	return 1, nil
}

func (w *memWriter) InsertAppointment(ctx context.Context, a *domain.Appointment) (int, error) {
	if _, ok := w.st.appointments[a.ID]; ok {
		return 0, ErrDuplicateID
	}
	if _, ok := w.st.members[a.DoctorID].(*domain.Doctor); !ok {
		return 0, ErrDoctorNotFound
	}
	w.st.appointments[a.ID] = a.Clone()
	w.st.apptOrder = append(w.st.apptOrder, a.ID)
	return 1, nil
}

func (w *memWriter) UpdateAppointment(ctx context.Context, a *domain.Appointment, expectedVersion int) (int, error) {
	cur, ok := w.st.appointments[a.ID]
	if !ok {
		return 0, ErrAppointmentNotFound
	}
	if cur.Version != expectedVersion {
		return 0, ErrVersionConflict
	}
	w.st.appointments[a.ID] = a.Clone()
	return 1, nil
}

func (w *memWriter) InsertMedicalRecord(ctx context.Context, r *domain.MedicalRecord) (int, error) {
	if _, ok := w.st.members[r.PatientID].(*domain.Patient); !ok {
		return 0, ErrMemberNotFound
	}
	w.st.records = append(w.st.records, r.Clone())
	return 1, nil
}

func (w *memWriter) InsertMessage(ctx context.Context, m *domain.ChatMessage) (int, error) {
	c := *m
	w.st.messages = append(w.st.messages, &c)
	return 1, nil
}

func (w *memWriter) MarkMessagesRead(ctx context.Context, receiver, sender uuid.UUID) (int, error) {
	n := 0
	for i, msg := range w.st.messages {
		if msg.ReceiverID == receiver && msg.SenderID == sender && !msg.IsRead {
			c := *msg
			c.IsRead = true
			w.st.messages[i] = &c
			n++
		}
	}
	return n, nil
}

func (w *memWriter) AppendOutbox(ctx context.Context, events []event.Envelope) error {
	now := w.now()
	for _, e := range events {
		w.st.outbox = append(w.st.outbox, outboxRow{env: e, storedAt: now})
	}
	return nil
}
