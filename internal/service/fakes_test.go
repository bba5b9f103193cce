package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/notify"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/payment"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/repository"
)

// memStore is an in-memory EventStore and RegistrationStore with the same
// conditional-update semantics as the Postgres repositories.
type memStore struct {
	mu     sync.Mutex
	events map[string]*model.Event
	regs   map[string]*model.Registration
	seq    int
	calls  int
}

func newMemStore() *memStore {
	return &memStore{
		events: make(map[string]*model.Event),
		regs:   make(map[string]*model.Registration),
	}
}

// writes counts mutating calls, so tests can assert storage was untouched.
func (m *memStore) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *memStore) addEvent(e model.Event) *model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Currency == "" {
		e.Currency = "usd"
	}
	m.events[e.ID] = &e
	cp := e
	return &cp
}

func (m *memStore) addRegistration(r model.Registration) *model.Registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.seq++
	r.CreatedAt = time.Date(2025, 1, 1, 0, 0, m.seq, 0, time.UTC)
	m.regs[r.ID] = &r
	cp := r
	return &cp
}

func (m *memStore) registration(id string) model.Registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.regs[id]
}

func (m *memStore) seatsTaken(eventID string) int {
	n := 0
	for _, r := range m.regs {
		if r.EventID == eventID && (r.Status == model.StatusPending || r.Status == model.StatusPaid) {
			n++
		}
	}
	return n
}

// EventStore

func (m *memStore) Create(ctx context.Context, e *model.Event) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	cp := *e
	cp.ID = uuid.NewString()
	m.events[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) List(ctx context.Context, includeArchived bool) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, e := range m.events {
		if e.ArchivedAt != nil && !includeArchived {
			continue
		}
		cp := *e
		cp.SetSeatsTaken(m.seatsTaken(e.ID))
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	cp.SetSeatsTaken(m.seatsTaken(id))
	return &cp, nil
}

func (m *memStore) Update(ctx context.Context, e *model.Event) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if _, ok := m.events[e.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	m.events[e.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) Archive(ctx context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	e, ok := m.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if e.ArchivedAt == nil {
		now := time.Now()
		e.ArchivedAt = &now
	}
	cp := *e
	return &cp, nil
}

// registrationStore adapts memStore to RegistrationStore, whose method
// names overlap with EventStore.
type registrationStore struct{ *memStore }

func (s registrationStore) Create(ctx context.Context, reg *model.Registration, enforceCapacity bool) (*model.Registration, error) {
	m := s.memStore
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	e, ok := m.events[reg.EventID]
	if !ok || e.ArchivedAt != nil {
		return nil, repository.ErrNotFound
	}
	if enforceCapacity && m.seatsTaken(e.ID) >= e.Capacity {
		return nil, repository.ErrEventFull
	}
	cp := *reg
	cp.ID = uuid.NewString()
	m.seq++
	cp.CreatedAt = time.Date(2025, 1, 1, 0, 0, m.seq, 0, time.UTC)
	if cp.Status == "" {
		cp.Status = model.StatusPending
	}
	if cp.Status == model.StatusPaid {
		now := time.Now()
		cp.PaidAt = &now
	}
	m.regs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s registrationStore) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	m := s.memStore
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s registrationStore) GetByPaymentIntent(ctx context.Context, intentID string) (*model.Registration, error) {
	m := s.memStore
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.regs {
		if r.PaymentIntentID == intentID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s registrationStore) List(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, error) {
	m := s.memStore
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Registration
	for _, r := range m.regs {
		if f.EventID != "" && r.EventID != f.EventID {
			continue
		}
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s registrationStore) ListStalePending(ctx context.Context, before time.Time, limit int) ([]model.Registration, error) {
	all, _ := s.List(ctx, model.RegistrationFilter{Status: model.StatusPending})
	var out []model.Registration
	for _, r := range all {
		if r.CreatedAt.Before(before) && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s registrationStore) SetPaymentIntent(ctx context.Context, id, intentID string, amountCents int64, currency string) (*model.Registration, error) {
	return s.update(id, func(r *model.Registration) bool {
		if r.Status != model.StatusPending {
			return false
		}
		r.PaymentIntentID, r.AmountCents, r.Currency = intentID, amountCents, currency
		return true
	})
}

func (s registrationStore) MarkPaid(ctx context.Context, id, intentID string) (*model.Registration, error) {
	return s.update(id, func(r *model.Registration) bool {
		if r.Status != model.StatusPending {
			return false
		}
		if r.PaymentIntentID != "" && r.PaymentIntentID != intentID {
			return false
		}
		now := time.Now()
		r.Status = model.StatusPaid
		r.PaidAt = &now
		if intentID != "" {
			r.PaymentIntentID = intentID
		}
		return true
	})
}

func (s registrationStore) Transition(ctx context.Context, id string, from, to model.PaymentStatus) (*model.Registration, error) {
	return s.update(id, func(r *model.Registration) bool {
		if r.Status != from {
			return false
		}
		r.Status = to
		return true
	})
}

func (s registrationStore) UpdateDetails(ctx context.Context, id, name, email string) (*model.Registration, error) {
	reg, err := s.update(id, func(r *model.Registration) bool {
		r.Name, r.Email = name, email
		return true
	})
	if errors.Is(err, repository.ErrStateConflict) {
		return nil, repository.ErrNotFound
	}
	return reg, err
}

func (s registrationStore) Delete(ctx context.Context, id string) error {
	m := s.memStore
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if _, ok := m.regs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.regs, id)
	return nil
}

func (s registrationStore) update(id string, apply func(*model.Registration) bool) (*model.Registration, error) {
	m := s.memStore
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	r, ok := m.regs[id]
	if !ok {
		return nil, repository.ErrStateConflict
	}
	next := *r
	if !apply(&next) {
		return nil, repository.ErrStateConflict
	}
	*r = next
	out := next
	return &out, nil
}

type memNotifications struct {
	mu   sync.Mutex
	rows map[string]*model.Notification
}

func (l *memNotifications) Record(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rows == nil {
		l.rows = make(map[string]*model.Notification)
	}
	key := n.RegistrationID + "/" + n.Kind
	row, ok := l.rows[key]
	if !ok {
		row = &model.Notification{ID: uuid.NewString(), RegistrationID: n.RegistrationID, Kind: n.Kind}
		l.rows[key] = row
	}
	row.Recipient, row.Status, row.Error = n.Recipient, n.Status, n.Error
	row.Attempts++
	cp := *row
	return &cp, nil
}

func (l *memNotifications) List(ctx context.Context, status model.NotificationStatus) ([]model.Notification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.Notification
	for _, n := range l.rows {
		if status == "" || n.Status == status {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (l *memNotifications) get(regID string) *model.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows[regID+"/"+model.NotificationKindConfirmation]
}

// fakeGateway keeps intents in memory. Tests flip statuses directly.
type fakeGateway struct {
	mu        sync.Mutex
	intents   map[string]*payment.Intent
	seq       int
	err       error
	creates   int
	gets      int
	cancelled []string
	refunded  []string
	refundErr error
	// refuseCancel, when set, rejects CancelIntent after it has had a chance
	// to move the stored intent, as the gateway does for a processing intent.
	refuseCancel func(in *payment.Intent) error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: make(map[string]*payment.Intent)}
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.creates++
	g.seq++
	id := fmt.Sprintf("pi_%d", g.seq)
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	in := &payment.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       payment.IntentPending,
		AmountCents:  amountCents,
		Currency:     currency,
		Metadata:     meta,
	}
	g.intents[id] = in
	cp := *in
	return &cp, nil
}

func (g *fakeGateway) GetIntent(ctx context.Context, id string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gets++
	if g.err != nil {
		return nil, g.err
	}
	in, ok := g.intents[id]
	if !ok {
		return nil, &payment.Error{Op: "get_intent", Code: "resource_missing", Message: "no such payment_intent"}
	}
	cp := *in
	return &cp, nil
}

func (g *fakeGateway) CancelIntent(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	if g.refuseCancel != nil {
		return g.refuseCancel(g.intents[id])
	}
	g.cancelled = append(g.cancelled, id)
	if in, ok := g.intents[id]; ok {
		in.Status = payment.IntentFailed
	}
	return nil
}

func (g *fakeGateway) Refund(ctx context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunded = append(g.refunded, intentID)
	return nil
}

func (g *fakeGateway) setStatus(id string, st payment.IntentStatus, lastErr string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[id].Status = st
	g.intents[id].LastError = lastErr
}

func (g *fakeGateway) put(in payment.Intent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[in.ID] = &in
}

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.Confirmation
	err  error
}

func (s *fakeSender) SendConfirmation(ctx context.Context, c notify.Confirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, c)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) has(topic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.topics {
		if t == topic {
			return true
		}
	}
	return false
}

type harness struct {
	store   *memStore
	notes   *memNotifications
	gateway *fakeGateway
	sender  *fakeSender
	pub     *recordingPublisher
	svc     *RegistrationService
	events  *EventService
}

func newHarness(opts Options) *harness {
	h := &harness{
		store:   newMemStore(),
		notes:   &memNotifications{},
		gateway: newFakeGateway(),
		sender:  &fakeSender{},
		pub:     &recordingPublisher{},
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	h.svc = NewRegistrationService(h.store, registrationStore{h.store}, h.notes,
		h.gateway, h.sender, h.pub, nil, opts)
	h.events = NewEventService(h.store, h.pub, opts.Currency, nil)
	return h
}
