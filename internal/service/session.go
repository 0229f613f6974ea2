package service

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleex/storefront-api/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

type Step string

const (
	StepDetails  Step = "details"
	StepDelivery Step = "delivery"
	StepAddress  Step = "address"
	StepPayment  Step = "payment"
	StepGateway  Step = "gateway"
	StepSuccess  Step = "success"
)

type CustomerDetails struct {
	Name  string
	Phone string
	City  string
	State string
}

// Session is one customer's storefront visit: their cart and, once checkout
// begins, the state machine context. Step transitions within a session are
// strictly sequential; the mutex enforces that.
type Session struct {
	mu sync.Mutex

	ID       string
	TenantID string

	Cart         Cart
	RestoreOffer []model.CartItem // cached cart from a prior visit, offered not merged

	CheckoutOpen     bool
	Step             Step
	Customer         CustomerDetails
	Address          string
	DeliveryMethod   model.DeliveryMethod
	CEP              string
	ShippingOptions  []model.ShippingQuote
	SelectedShipping *model.ShippingQuote
	AppliedCoupon    *model.Coupon
	PaymentMethod    string // pix | card
	Order            *model.Order

	CreatedAt time.Time
	LastSeen  time.Time
}

// Lock serializes all mutations of one session. Callers hold it for the full
// guard-then-effect span of a transition.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// SessionManager holds live sessions in memory. Sessions are per tenant and
// never shared across customers.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewSessionManager(ttl time.Duration) *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session), ttl: ttl}
}

func (m *SessionManager) Create(tenantID string) *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Step:      StepDetails,
		CreatedAt: time.Now(),
		LastSeen:  time.Now(),
	}
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return sess
}

func (m *SessionManager) Get(tenantID, sessionID string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok || sess.TenantID != tenantID {
		return nil, ErrSessionNotFound
	}
	sess.Lock()
	sess.LastSeen = time.Now()
	sess.Unlock()
	return sess, nil
}

func (m *SessionManager) Delete(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// PruneExpired drops sessions idle past the TTL. Run periodically.
func (m *SessionManager) PruneExpired() int {
	cutoff := time.Now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	pruned := 0
	for id, sess := range m.sessions {
		sess.Lock()
		idle := sess.LastSeen.Before(cutoff)
		sess.Unlock()
		if idle {
			delete(m.sessions, id)
			pruned++
		}
	}
	return pruned
}
