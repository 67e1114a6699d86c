package tickets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"concerto-app/internal/domain/payments"
	"concerto-app/internal/domain/registrations"
	"concerto-app/internal/infra/mailer"
	"concerto-app/internal/infra/ticketpdf"
)

type memStore struct {
	mu      sync.Mutex
	regs    map[string]registrations.Registration
	seq     int
	markErr error
	getErr  error
	saveErr error
	deleted []string
	marks   int
}

func newMemStore(regs ...registrations.Registration) *memStore {
	s := &memStore{regs: map[string]registrations.Registration{}}
	for _, r := range regs {
		s.regs[r.ID] = r
	}
	return s
}

func (s *memStore) Get(_ context.Context, id string) (registrations.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return registrations.Registration{}, s.getErr
	}
	r, ok := s.regs[id]
	if !ok {
		return registrations.Registration{}, registrations.ErrNotFound
	}
	return r, nil
}

func (s *memStore) Create(_ context.Context, reg *registrations.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	reg.ID = fmt.Sprintf("reg-%d", s.seq)
	s.regs[reg.ID] = *reg
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.regs, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *memStore) ListByOwner(_ context.Context, userID string) ([]registrations.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []registrations.Registration
	for _, r := range s.regs {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) AttachCheckoutSession(_ context.Context, id, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok {
		return registrations.ErrNotFound
	}
	r.StripeCheckoutSessionID = &sessionID
	s.regs[id] = r
	return nil
}

func (s *memStore) RestartCheckout(_ context.Context, id, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok || r.Status != registrations.StatusPending {
		return false, nil
	}
	r.StripeCheckoutSessionID = &sessionID
	r.StripePaymentIntentID = nil
	s.regs[id] = r
	return true, nil
}

func (s *memStore) MarkPaid(_ context.Context, id string, conf registrations.PaymentConfirmation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks++
	if s.markErr != nil {
		return false, s.markErr
	}
	r, ok := s.regs[id]
	if !ok || r.Status != registrations.StatusPending {
		return false, nil
	}
	r.Status = registrations.StatusPaid
	if conf.CheckoutSessionID != "" {
		v := conf.CheckoutSessionID
		r.StripeCheckoutSessionID = &v
	}
	if conf.PaymentIntentID != "" {
		v := conf.PaymentIntentID
		r.StripePaymentIntentID = &v
	}
	if r.QRCodeDataURL == nil && conf.VerificationCode != "" {
		v := conf.VerificationCode
		r.QRCodeDataURL = &v
	}
	s.regs[id] = r
	return true, nil
}

func (s *memStore) SaveVerificationCode(_ context.Context, id, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return "", s.saveErr
	}
	r, ok := s.regs[id]
	if !ok {
		return "", registrations.ErrNotFound
	}
	if r.QRCodeDataURL == nil {
		r.QRCodeDataURL = &code
		s.regs[id] = r
	}
	return *r.QRCodeDataURL, nil
}

func (s *memStore) markCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marks
}

func (s *memStore) snapshot(id string) registrations.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[id]
}

type fakeGateway struct {
	createFn   func(req payments.CheckoutRequest) (payments.Session, error)
	retrieveFn func(sessionID string) (payments.Session, error)
	parseFn    func(payload []byte, signature string) (payments.Event, error)

	mu         sync.Mutex
	requests   []payments.CheckoutRequest
	retrievals atomic.Int32
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (payments.Session, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.createFn == nil {
		return payments.Session{ID: "cs_new", URL: "https://checkout.example/cs_new"}, nil
	}
	return g.createFn(req)
}

func (g *fakeGateway) RetrieveSession(_ context.Context, sessionID string) (payments.Session, error) {
	g.retrievals.Add(1)
	if g.retrieveFn == nil {
		return payments.Session{}, errors.New("unexpected retrieve")
	}
	return g.retrieveFn(sessionID)
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (payments.Event, error) {
	if g.parseFn == nil {
		return payments.Event{}, payments.ErrInvalidSignature
	}
	return g.parseFn(payload, signature)
}

type fakeCodes struct {
	calls atomic.Int32
	err   error
}

func (c *fakeCodes) Generate(id string) (string, error) {
	n := c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return fmt.Sprintf("data:image/png;base64,code-%s-%d", id, n), nil
}

type fakeRenderer struct {
	mu      sync.Mutex
	details []ticketpdf.Details
	err     error
}

func (r *fakeRenderer) Render(d ticketpdf.Details) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.details = append(r.details, d)
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-" + d.RegistrationID), nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []mailer.Ticket
	err  error
}

func (s *fakeSender) SendTicket(_ context.Context, t mailer.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, t)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type memEvents struct {
	mu        sync.Mutex
	processed map[string]bool
	finished  map[string]error
}

func newMemEvents() *memEvents {
	return &memEvents{processed: map[string]bool{}, finished: map[string]error{}}
}

func (m *memEvents) Begin(_ context.Context, eventID, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[eventID], nil
}

func (m *memEvents) Finish(_ context.Context, eventID string, procErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[eventID] = procErr
	m.processed[eventID] = procErr == nil
	return nil
}

type fakeProjects struct {
	paid map[string]string
}

func (p *fakeProjects) MarkPaid(_ context.Context, projectID, sessionID string) (bool, error) {
	if _, ok := p.paid[projectID]; ok {
		return false, nil
	}
	p.paid[projectID] = sessionID
	return true, nil
}

type harness struct {
	store    *memStore
	gateway  *fakeGateway
	codes    *fakeCodes
	renderer *fakeRenderer
	sender   *fakeSender
	events   *memEvents
	projects *fakeProjects
	engine   *Engine
}

func newHarness(regs ...registrations.Registration) *harness {
	h := &harness{
		store:    newMemStore(regs...),
		gateway:  &fakeGateway{},
		codes:    &fakeCodes{},
		renderer: &fakeRenderer{},
		sender:   &fakeSender{},
		events:   newMemEvents(),
		projects: &fakeProjects{paid: map[string]string{}},
	}
	h.engine = NewEngine(Deps{
		Store:    h.store,
		Gateway:  h.gateway,
		Codes:    h.codes,
		Renderer: h.renderer,
		Sender:   h.sender,
		Events:   h.events,
		Projects: h.projects,
		Origin:   "https://concerto.example/",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return h
}

func strPtr(s string) *string { return &s }

func pendingRegistration(id, owner string) registrations.Registration {
	return registrations.Registration{
		ID:                      id,
		UserID:                  owner,
		EventID:                 "sous-la-voute-de-l-etoile-20250116",
		FirstName:               "Ada",
		LastName:                "Lovelace",
		Email:                   "ada@example.com",
		Phone:                   "0600000000",
		Amount:                  25,
		Currency:                "EUR",
		Status:                  registrations.StatusPending,
		StripeCheckoutSessionID: strPtr("cs_" + id),
	}
}

func paidSession(id, regID string) payments.Session {
	return payments.Session{
		ID:              id,
		PaymentStatus:   payments.PaymentStatusPaid,
		PaymentIntentID: "pi_" + regID,
		Metadata:        map[string]string{"registration_id": regID},
	}
}

func completedEvent(eventID string, s payments.Session) payments.Event {
	return payments.Event{ID: eventID, Type: payments.EventCheckoutCompleted, Session: &s}
}

// deliver makes the gateway accept any payload as ev.
func (h *harness) deliver(ev payments.Event) {
	h.gateway.parseFn = func([]byte, string) (payments.Event, error) { return ev, nil }
}

func reasonOf(err error) ErrorReason {
	var te *Error
	if errors.As(err, &te) {
		return te.Reason
	}
	return ""
}
