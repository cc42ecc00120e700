package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payment"
)

var ErrGatewayDown = errors.New("gateway unavailable")

// Gateway is an in-memory payment processor. Mutating calls honor
// idempotency keys the way the real processor does: a repeated key returns
// the first result without doing the work again.
type Gateway struct {
	mu sync.Mutex

	intents   map[string]*payment.Intent
	byKey     map[string]string
	refunds   []payment.RefundRequest
	transfers []payment.TransferRequest
	reversals []string
	accounts  map[string]string
	seq       int

	// FailRefund makes Refund fail for the listed payment intents.
	FailRefund map[string]error
	// FailTransfer makes every CreateTransfer call fail.
	FailTransfer error
	// FailReverse makes every ReverseTransfer call fail.
	FailReverse error
	// FailCreate makes every CreateIntent call fail.
	FailCreate error
}

var (
	_ payment.Gateway          = (*Gateway)(nil)
	_ payment.AccountOnboarder = (*Gateway)(nil)
)

func NewGateway() *Gateway {
	return &Gateway{
		intents:    map[string]*payment.Intent{},
		byKey:      map[string]string{},
		accounts:   map[string]string{},
		FailRefund: map[string]error{},
	}
}

func (g *Gateway) next(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_%d", prefix, g.seq)
}

func (g *Gateway) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailCreate != nil {
		return nil, g.FailCreate
	}
	if id, ok := g.byKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		c := *g.intents[id]
		return &c, nil
	}
	md := make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		md[k] = v
	}
	id := g.next("pi")
	in := &payment.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
		Amount:       req.Amount,
		Currency:     req.Currency,
		Metadata:     md,
	}
	g.intents[id] = in
	if req.IdempotencyKey != "" {
		g.byKey[req.IdempotencyKey] = id
	}
	c := *in
	return &c, nil
}

func (g *Gateway) RetrieveIntent(ctx context.Context, intentID string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[intentID]
	if !ok {
		return nil, &payment.GatewayError{Code: "resource_missing", Message: "no such payment intent"}
	}
	c := *in
	return &c, nil
}

// Succeed marks an intent as paid, as if the customer completed checkout.
func (g *Gateway) Succeed(intentID string) *payment.Intent {
	g.mu.Lock()
	defer g.mu.Unlock()
	in := g.intents[intentID]
	in.Status = payment.IntentStatusSucceeded
	c := *in
	return &c
}

func (g *Gateway) Refund(ctx context.Context, req payment.RefundRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.FailRefund[req.PaymentIntentID]; err != nil {
		return "", err
	}
	if id, ok := g.byKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return id, nil
	}
	id := g.next("re")
	g.refunds = append(g.refunds, req)
	if req.IdempotencyKey != "" {
		g.byKey[req.IdempotencyKey] = id
	}
	return id, nil
}

func (g *Gateway) CreateTransfer(ctx context.Context, req payment.TransferRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailTransfer != nil {
		return "", g.FailTransfer
	}
	if id, ok := g.byKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return id, nil
	}
	id := g.next("tr")
	g.transfers = append(g.transfers, req)
	if req.IdempotencyKey != "" {
		g.byKey[req.IdempotencyKey] = id
	}
	return id, nil
}

func (g *Gateway) ReverseTransfer(ctx context.Context, transferID, idempotencyKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailReverse != nil {
		return g.FailReverse
	}
	if _, ok := g.byKey[idempotencyKey]; ok && idempotencyKey != "" {
		return nil
	}
	g.reversals = append(g.reversals, transferID)
	if idempotencyKey != "" {
		g.byKey[idempotencyKey] = transferID
	}
	return nil
}

func (g *Gateway) CreateConnectedAccount(ctx context.Context, providerID string, contact models.Identifier) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id, ok := g.accounts[providerID]; ok {
		return id, nil
	}
	id := g.next("acct")
	g.accounts[providerID] = id
	return id, nil
}

func (g *Gateway) OnboardingLink(ctx context.Context, accountID string) (string, error) {
	return "https://connect.example.test/onboard/" + accountID, nil
}

// Refunds returns every refund the processor executed.
func (g *Gateway) Refunds() []payment.RefundRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payment.RefundRequest(nil), g.refunds...)
}

// RefundedMinor sums executed refunds against one intent, in minor units.
func (g *Gateway) RefundedMinor(intentID string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	var total int64
	for _, r := range g.refunds {
		if r.PaymentIntentID == intentID {
			total += r.Amount
		}
	}
	return total
}

func (g *Gateway) Transfers() []payment.TransferRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payment.TransferRequest(nil), g.transfers...)
}

func (g *Gateway) Reversals() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.reversals...)
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []models.BookingEvent
	Err    error
}

func (p *Publisher) Publish(ctx context.Context, event models.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *Publisher) Events() []models.BookingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.BookingEvent(nil), p.events...)
}

// OfType returns the recorded events of one type.
func (p *Publisher) OfType(typ models.BookingEventType) []models.BookingEvent {
	var out []models.BookingEvent
	for _, ev := range p.Events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// BlobStore keeps uploaded files in memory.
type BlobStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	seq     int
	FailPut error
}

func NewBlobStore() *BlobStore {
	return &BlobStore{files: map[string][]byte{}}
}

func (s *BlobStore) Store(ctx context.Context, ownerID string, r io.Reader, originalName string) (string, error) {
	if s.FailPut != nil {
		return "", s.FailPut
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	name := fmt.Sprintf("listings/%s/%d-%s", ownerID, s.seq, originalName)
	s.files[name] = buf.Bytes()
	return name, nil
}

func (s *BlobStore) Delete(ctx context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, filename)
	return nil
}

func (s *BlobStore) URL(filename string) (string, error) {
	return "https://cdn.example.test/" + filename, nil
}

func (s *BlobStore) Has(filename string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[filename]
	return ok
}
