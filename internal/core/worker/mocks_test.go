package worker_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/payrun/internal/core/domain"
	"github.com/ibrahimkeyboad/payrun/internal/core/method"
)

// memStore is an in-memory stand-in for all four repositories.
type memStore struct {
	mu         sync.Mutex
	batchOrder []uuid.UUID
	batches    map[uuid.UUID]*domain.Batch
	payments   []*domain.Payment
	entities   []*domain.Entity
	accounts   []*domain.Account

	failFinishPreprocessing bool
	clock                   time.Time
}

func newMemStore() *memStore {
	return &memStore{
		batches: make(map[uuid.UUID]*domain.Batch),
		clock:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) addBatch(name string) *domain.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = s.clock.Add(time.Minute)
	b := &domain.Batch{
		ID:        uuid.New(),
		Name:      name,
		Status:    domain.BatchStatusUploaded,
		CreatedAt: s.clock,
		UpdatedAt: s.clock,
	}
	s.batches[b.ID] = b
	s.batchOrder = append(s.batchOrder, b.ID)
	return b
}

func (s *memStore) addPayment(batchID uuid.UUID, p domain.Payment) *domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.New()
	p.BatchID = batchID
	if p.Status == "" {
		p.Status = domain.PaymentStatusPending
	}
	stored := p
	s.payments = append(s.payments, &stored)
	return &stored
}

func (s *memStore) setApproved(id uuid.UUID, approved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[id].Approved = approved
}

func (s *memStore) setStatus(id uuid.UUID, status domain.BatchStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[id].Status = status
}

func (s *memStore) batch(id uuid.UUID) domain.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.batches[id]
}

func (s *memStore) payment(id uuid.UUID) domain.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ID == id {
			return *p
		}
	}
	panic("payment not found: " + id.String())
}

// BatchStore

func (s *memStore) NextUploaded(_ context.Context) (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.batchOrder {
		b := s.batches[id]
		if b.Status == domain.BatchStatusUploaded || b.Status == domain.BatchStatusPreprocessing {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStore) NextApproved(_ context.Context) (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.batchOrder {
		b := s.batches[id]
		if b.Approved && (b.Status == domain.BatchStatusPending || b.Status == domain.BatchStatusProcessing) {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (s *memStore) SetStatus(_ context.Context, id uuid.UUID, status domain.BatchStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[id].Status = status
	return nil
}

func (s *memStore) FinishPreprocessing(_ context.Context, id uuid.UUID, count int, total int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFinishPreprocessing {
		return fmt.Errorf("connection reset by peer")
	}
	b := s.batches[id]
	b.Status = domain.BatchStatusPending
	b.PaymentsCount = count
	b.PaymentsTotal = total
	return nil
}

// PaymentStore

func (s *memStore) ListByBatch(_ context.Context, batchID uuid.UUID) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Payment
	for _, p := range s.payments {
		if p.BatchID == batchID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memStore) ListPendingByBatch(_ context.Context, batchID uuid.UUID) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Payment
	for _, p := range s.payments {
		if p.BatchID == batchID && p.Status == domain.PaymentStatusPending {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memStore) MarkProvisioned(_ context.Context, p *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range s.payments {
		if stored.ID == p.ID {
			stored.PayorEntityID = p.PayorEntityID
			stored.PayorAccountID = p.PayorAccountID
			stored.PayeeEntityID = p.PayeeEntityID
			stored.PayeeAccountID = p.PayeeAccountID
			stored.Status = domain.PaymentStatusPending
			stored.Error = ""
			return nil
		}
	}
	return fmt.Errorf("payment not found")
}

func (s *memStore) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range s.payments {
		if stored.ID == id {
			stored.Status = domain.PaymentStatusFailed
			stored.Error = reason
			return nil
		}
	}
	return fmt.Errorf("payment not found")
}

func (s *memStore) MarkComplete(_ context.Context, id uuid.UUID, methodPaymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range s.payments {
		if stored.ID == id {
			stored.Status = domain.PaymentStatusComplete
			stored.MethodPaymentID = methodPaymentID
			stored.Error = ""
			return nil
		}
	}
	return fmt.Errorf("payment not found")
}

// EntityStore

func (s *memStore) FindByDunkinID(_ context.Context, dunkinID string) (*domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entities {
		if e.DunkinID == dunkinID {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStore) Upsert(_ context.Context, e domain.Entity) (*domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entities {
		if existing.DunkinID == e.DunkinID {
			copied := *existing
			return &copied, nil
		}
	}
	e.ID = uuid.New()
	stored := e
	s.entities = append(s.entities, &stored)
	copied := stored
	return &copied, nil
}

// AccountStore

func (s *memStore) FindACH(_ context.Context, holderID uuid.UUID, routing, number string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Kind == domain.AccountKindACH && a.HolderID == holderID && a.Routing == routing && a.Number == number {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindLiability(_ context.Context, holderID uuid.UUID, accountNumber string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Kind == domain.AccountKindLiability && a.HolderID == holderID && a.AccountNumber == accountNumber {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpsertAccount(a domain.Account) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.HolderID != a.HolderID || existing.Kind != a.Kind {
			continue
		}
		if a.Kind == domain.AccountKindACH && existing.Routing == a.Routing && existing.Number == a.Number {
			copied := *existing
			return &copied, nil
		}
		if a.Kind == domain.AccountKindLiability && existing.AccountNumber == a.AccountNumber {
			copied := *existing
			return &copied, nil
		}
	}
	a.ID = uuid.New()
	stored := a
	s.accounts = append(s.accounts, &stored)
	copied := stored
	return &copied, nil
}

// accountStore adapts memStore to the worker's AccountStore interface; the
// entity Upsert above already claims the method name.
type accountStore struct{ *memStore }

func (s accountStore) Upsert(_ context.Context, a domain.Account) (*domain.Account, error) {
	return s.UpsertAccount(a)
}

// fakeProvider counts provider traffic and hands out sequential ids.
type fakeProvider struct {
	mu          sync.Mutex
	entityReqs  []method.EntityRequest
	accountReqs []method.AccountRequest
	verified    []string
	paymentReqs []method.PaymentRequest
	merchants   int

	failPaymentSource string // CreatePayment fails for this source account
	callDelay         time.Duration

	inFlight    int64
	maxInFlight int64
}

func (f *fakeProvider) enter() func() {
	n := atomic.AddInt64(&f.inFlight, 1)
	for {
		max := atomic.LoadInt64(&f.maxInFlight)
		if n <= max || atomic.CompareAndSwapInt64(&f.maxInFlight, max, n) {
			break
		}
	}
	if f.callDelay > 0 {
		time.Sleep(f.callDelay)
	}
	return func() { atomic.AddInt64(&f.inFlight, -1) }
}

func (f *fakeProvider) CreateEntity(_ context.Context, req method.EntityRequest) (string, error) {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entityReqs = append(f.entityReqs, req)
	return fmt.Sprintf("ent_%d", len(f.entityReqs)), nil
}

func (f *fakeProvider) CreateAccount(_ context.Context, req method.AccountRequest) (string, error) {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountReqs = append(f.accountReqs, req)
	return fmt.Sprintf("acc_%d", len(f.accountReqs)), nil
}

func (f *fakeProvider) VerifyAccount(_ context.Context, accountID string) error {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, accountID)
	return nil
}

func (f *fakeProvider) FindMerchant(_ context.Context, _ string) (string, error) {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merchants++
	return "mch_1", nil
}

func (f *fakeProvider) CreatePayment(_ context.Context, req method.PaymentRequest) (string, error) {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPaymentSource != "" && req.Source == f.failPaymentSource {
		return "", fmt.Errorf("insufficient funds in source account")
	}
	f.paymentReqs = append(f.paymentReqs, req)
	return fmt.Sprintf("pmt_%d", len(f.paymentReqs)), nil
}

func (f *fakeProvider) individualEntities() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, req := range f.entityReqs {
		if req.Type == string(domain.EntityKindIndividual) {
			n++
		}
	}
	return n
}
