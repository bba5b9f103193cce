package handler

import (
	"context"
	"errors"
	"sync"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/export"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/payment"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/service"
)

// callCounter records which service methods a request reached.
type callCounter struct {
	mu    sync.Mutex
	calls []string
}

func (c *callCounter) hit(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *callCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type stubEvents struct {
	callCounter
	events []model.Event
	err    error
}

func (s *stubEvents) ListEvents(ctx context.Context) ([]model.Event, error) {
	s.hit("ListEvents")
	return s.events, s.err
}

func (s *stubEvents) ListAllEvents(ctx context.Context) ([]model.Event, error) {
	s.hit("ListAllEvents")
	return s.events, s.err
}

func (s *stubEvents) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	s.hit("GetEvent")
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.events {
		if s.events[i].ID == id {
			return &s.events[i], nil
		}
	}
	return nil, service.ErrEventNotFound
}

func (s *stubEvents) CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error) {
	s.hit("CreateEvent")
	if s.err != nil {
		return nil, s.err
	}
	return &model.Event{ID: "e-new", Name: *in.Name}, nil
}

func (s *stubEvents) UpdateEvent(ctx context.Context, id string, in model.EventInput) (*model.Event, error) {
	s.hit("UpdateEvent")
	return &model.Event{ID: id}, s.err
}

func (s *stubEvents) ArchiveEvent(ctx context.Context, id string) (*model.Event, error) {
	s.hit("ArchiveEvent")
	return &model.Event{ID: id}, s.err
}

type stubRegistrations struct {
	callCounter
	reg        *model.Registration
	intent     *model.PaymentIntentResponse
	err        error
	webhookErr error
	lastCaller *model.Identity
	lastEvent  *payment.WebhookEvent
	lastFilter model.RegistrationFilter
}

func (s *stubRegistrations) result(name string, caller *model.Identity) (*model.Registration, error) {
	s.hit(name)
	s.lastCaller = caller
	if s.err != nil {
		return nil, s.err
	}
	return s.reg, nil
}

func (s *stubRegistrations) PublicConfig() service.PublicConfig {
	return service.PublicConfig{PublishableKey: "pk_test_123", Currency: "usd"}
}

func (s *stubRegistrations) InitiateRegistration(ctx context.Context, caller *model.Identity, req model.RegisterRequest) (*model.Registration, error) {
	return s.result("InitiateRegistration", caller)
}

func (s *stubRegistrations) PreparePayment(ctx context.Context, caller *model.Identity, registrationID string) (*model.PaymentIntentResponse, error) {
	s.hit("PreparePayment")
	s.lastCaller = caller
	return s.intent, s.err
}

func (s *stubRegistrations) ConfirmPayment(ctx context.Context, caller *model.Identity, req model.ConfirmPaymentRequest) (*model.Registration, error) {
	return s.result("ConfirmPayment", caller)
}

func (s *stubRegistrations) ConfirmFromWebhook(ctx context.Context, evt *payment.WebhookEvent) error {
	s.hit("ConfirmFromWebhook")
	s.lastEvent = evt
	return s.webhookErr
}

func (s *stubRegistrations) ListMyRegistrations(ctx context.Context, caller *model.Identity) ([]model.Registration, error) {
	s.hit("ListMyRegistrations")
	s.lastCaller = caller
	return nil, s.err
}

func (s *stubRegistrations) ListRegistrations(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, error) {
	s.hit("ListRegistrations")
	s.lastFilter = f
	return nil, s.err
}

func (s *stubRegistrations) GetRegistration(ctx context.Context, id string) (*model.Registration, error) {
	return s.result("GetRegistration", nil)
}

func (s *stubRegistrations) CreateRegistration(ctx context.Context, admin *model.Identity, req model.AdminRegistrationRequest) (*model.Registration, error) {
	return s.result("CreateRegistration", admin)
}

func (s *stubRegistrations) UpdateRegistration(ctx context.Context, admin *model.Identity, id string, patch model.RegistrationPatch) (*model.Registration, error) {
	return s.result("UpdateRegistration", admin)
}

func (s *stubRegistrations) DeleteRegistration(ctx context.Context, admin *model.Identity, id string) error {
	_, err := s.result("DeleteRegistration", admin)
	return err
}

func (s *stubRegistrations) CancelRegistration(ctx context.Context, admin *model.Identity, id string) (*model.Registration, error) {
	return s.result("CancelRegistration", admin)
}

func (s *stubRegistrations) RefundRegistration(ctx context.Context, admin *model.Identity, id string) (*model.Registration, error) {
	return s.result("RefundRegistration", admin)
}

func (s *stubRegistrations) ResendConfirmation(ctx context.Context, admin *model.Identity, id string) (*model.Notification, error) {
	s.hit("ResendConfirmation")
	return &model.Notification{RegistrationID: id, Status: model.NotificationSent}, s.err
}

func (s *stubRegistrations) ListNotifications(ctx context.Context, status model.NotificationStatus) ([]model.Notification, error) {
	s.hit("ListNotifications")
	return nil, s.err
}

type stubUsers struct {
	callCounter
}

func (s *stubUsers) ListUsers(ctx context.Context, page, perPage int) ([]model.User, error) {
	s.hit("ListUsers")
	return []model.User{{ID: "u1"}}, nil
}

func (s *stubUsers) DeleteUser(ctx context.Context, admin *model.Identity, id string) error {
	s.hit("DeleteUser")
	return nil
}

type stubExporter struct {
	callCounter
}

func (s *stubExporter) Run(ctx context.Context, f model.RegistrationFilter) (*export.Result, error) {
	s.hit("Run")
	return &export.Result{Key: "exports/x.jsonl", Count: 3}, nil
}

type stubWebhooks struct{}

func (stubWebhooks) Parse(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if signature != "valid" {
		return nil, errors.New("bad signature")
	}
	return &payment.WebhookEvent{ID: "evt_1", Type: payment.WebhookIntentSucceeded, Intent: &payment.Intent{ID: "pi_1"}}, nil
}

// tokenTable maps bearer tokens to identities.
type tokenTable map[string]*model.Identity

func (t tokenTable) Verify(token string) (*model.Identity, error) {
	if id, ok := t[token]; ok {
		return id, nil
	}
	return nil, errors.New("invalid token")
}

var (
	userIdentity  = &model.Identity{UserID: "user-1", Email: "user@example.com", Name: "User"}
	adminIdentity = &model.Identity{UserID: "admin-1", Email: "admin@example.com", IsAdmin: true}
	testTokens    = tokenTable{"user-token": userIdentity, "admin-token": adminIdentity}
)

type testAPI struct {
	events   *stubEvents
	regs     *stubRegistrations
	users    *stubUsers
	exporter *stubExporter
	deps     Deps
}

func newTestAPI() *testAPI {
	api := &testAPI{
		events:   &stubEvents{},
		regs:     &stubRegistrations{},
		users:    &stubUsers{},
		exporter: &stubExporter{},
	}
	api.deps = Deps{
		Events:        api.events,
		Registrations: api.regs,
		Users:         api.users,
		Exporter:      api.exporter,
		Webhooks:      stubWebhooks{},
		Verifier:      testTokens,
	}
	return api
}

func (a *testAPI) serviceCalls() int {
	return a.events.count() + a.regs.count() + a.users.count() + a.exporter.count()
}
