package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleex/storefront-api/internal/model"
	"github.com/fleex/storefront-api/internal/pix"
	"github.com/fleex/storefront-api/internal/repository"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrWrongStep        = errors.New("action not allowed in the current checkout step")
	ErrMissingDetails   = errors.New("name, phone and city are required")
	ErrMissingAddress   = errors.New("address is required")
	ErrSelectShipping   = errors.New("select a shipping option")
	ErrShippingRequired = errors.New("only carrier shipping is available for your city")
	ErrInvalidDelivery  = errors.New("unknown delivery method")
	ErrCouponInvalid    = errors.New("coupon invalid or expired")
	ErrInvalidPayment   = errors.New("payment method must be pix or card")
	ErrNoOrder          = errors.New("no order created for this session")
)

// CheckoutService drives the customer through the checkout state machine:
// details → delivery → (address | skip) → payment → (gateway | skip) →
// success. Guards are pure predicates over the session; effects only run
// after the guard passes.
type CheckoutService struct {
	users   repository.UserStore
	catalog repository.CatalogStore
	orders  repository.OrderStore
	carts   *CartService
	freight *FreightService

	paymentDelay time.Duration
	baseURL      string
	log          *slog.Logger
}

func NewCheckoutService(
	users repository.UserStore,
	catalog repository.CatalogStore,
	orders repository.OrderStore,
	carts *CartService,
	freight *FreightService,
	paymentDelay time.Duration,
	baseURL string,
	log *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		users:        users,
		catalog:      catalog,
		orders:       orders,
		carts:        carts,
		freight:      freight,
		paymentDelay: paymentDelay,
		baseURL:      baseURL,
		log:          log,
	}
}

// Begin opens the checkout for a session with a non-empty cart and resets
// per-checkout state. The applied coupon survives restarts.
func (s *CheckoutService) Begin(sess *Session) error {
	sess.Lock()
	defer sess.Unlock()

	if sess.Cart.IsEmpty() {
		return ErrEmptyCart
	}
	sess.CheckoutOpen = true
	sess.Step = StepDetails
	sess.ShippingOptions = nil
	sess.SelectedShipping = nil
	sess.CEP = ""
	sess.Order = nil
	sess.PaymentMethod = "pix"
	return nil
}

func (s *CheckoutService) SubmitDetails(sess *Session, details CustomerDetails) error {
	sess.Lock()
	defer sess.Unlock()

	if sess.Step != StepDetails {
		return ErrWrongStep
	}
	if strings.TrimSpace(details.Name) == "" ||
		strings.TrimSpace(details.Phone) == "" ||
		strings.TrimSpace(details.City) == "" {
		return ErrMissingDetails
	}
	sess.Customer = details
	sess.Step = StepDelivery
	return nil
}

// DeliveryBranch reports which delivery options the delivery step offers:
// carrier shipping only, or the local pickup/delivery pair.
type DeliveryBranch struct {
	ShippingOnly bool                   `json:"shippingOnly"`
	Methods      []model.DeliveryMethod `json:"methods"`
}

func (s *CheckoutService) DeliveryBranchFor(user *model.UserProfile, sess *Session) DeliveryBranch {
	sess.Lock()
	city := sess.Customer.City
	sess.Unlock()
	if shippingOnly(user, city) {
		return DeliveryBranch{ShippingOnly: true, Methods: []model.DeliveryMethod{model.DeliveryShipping}}
	}
	return DeliveryBranch{Methods: []model.DeliveryMethod{model.DeliveryPickup, model.DeliveryLocal}}
}

// shippingOnly holds when the tenant's plan carries carrier rates and the
// customer is outside the store's city.
func shippingOnly(user *model.UserProfile, customerCity string) bool {
	if user == nil {
		return false
	}
	if !model.FeaturesFor(user.Plan).CarrierRates {
		return false
	}
	if user.StoreCity == "" {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(customerCity), strings.TrimSpace(user.StoreCity))
}

// QuoteFreight fetches shipping options for the session's destination and
// clears any previous selection.
func (s *CheckoutService) QuoteFreight(ctx context.Context, sess *Session, cep string) ([]model.ShippingQuote, error) {
	quotes, err := s.freight.Quote(ctx, cep)
	if err != nil {
		sess.Lock()
		sess.ShippingOptions = nil
		sess.SelectedShipping = nil
		sess.Unlock()
		return nil, err
	}
	sess.Lock()
	sess.CEP = cep
	sess.ShippingOptions = quotes
	sess.SelectedShipping = nil
	sess.Unlock()
	return quotes, nil
}

func (s *CheckoutService) SelectShipping(sess *Session, service string) error {
	sess.Lock()
	defer sess.Unlock()

	for i := range sess.ShippingOptions {
		if sess.ShippingOptions[i].Service == service {
			sess.SelectedShipping = &sess.ShippingOptions[i]
			return nil
		}
	}
	return ErrSelectShipping
}

// SubmitDelivery commits the delivery method and advances to the address
// step, or straight to payment for pickup.
func (s *CheckoutService) SubmitDelivery(ctx context.Context, sess *Session, method model.DeliveryMethod) error {
	user, err := s.users.GetUser(ctx, sess.TenantID)
	if err != nil {
		return fmt.Errorf("get tenant: %w", err)
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Step != StepDelivery {
		return ErrWrongStep
	}
	switch method {
	case model.DeliveryPickup, model.DeliveryLocal, model.DeliveryShipping:
	default:
		return ErrInvalidDelivery
	}
	if shippingOnly(user, sess.Customer.City) && method != model.DeliveryShipping {
		return ErrShippingRequired
	}
	if method == model.DeliveryShipping && sess.SelectedShipping == nil {
		return ErrSelectShipping
	}

	sess.DeliveryMethod = method
	if method == model.DeliveryPickup {
		sess.Step = StepPayment
	} else {
		sess.Step = StepAddress
	}
	return nil
}

func (s *CheckoutService) SubmitAddress(sess *Session, address string) error {
	sess.Lock()
	defer sess.Unlock()

	if sess.Step != StepAddress {
		return ErrWrongStep
	}
	if strings.TrimSpace(address) == "" {
		return ErrMissingAddress
	}
	sess.Address = address
	sess.Step = StepPayment
	return nil
}

// ApplyCoupon matches the code against the tenant's coupon set. An invalid
// code clears the candidate and reports the error without blocking progress.
func (s *CheckoutService) ApplyCoupon(ctx context.Context, sess *Session, code string) (*model.Coupon, error) {
	coupons, err := s.catalog.GetCoupons(ctx, sess.TenantID)
	if err != nil {
		return nil, fmt.Errorf("get coupons: %w", err)
	}

	sess.Lock()
	defer sess.Unlock()

	wanted := strings.ToUpper(strings.TrimSpace(code))
	for i := range coupons {
		if coupons[i].Code == wanted {
			sess.AppliedCoupon = &coupons[i]
			return &coupons[i], nil
		}
	}
	sess.AppliedCoupon = nil
	return nil, ErrCouponInvalid
}

func (s *CheckoutService) RemoveCoupon(sess *Session) {
	sess.Lock()
	sess.AppliedCoupon = nil
	sess.Unlock()
}

func (s *CheckoutService) Totals(sess *Session) Totals {
	sess.Lock()
	defer sess.Unlock()
	return sess.Cart.Totals(sess.AppliedCoupon, sess.SelectedShipping)
}

// Finalize creates the pending order, decrements stock and clears the cart
// snapshot, then branches: gateway when the tenant has automated payments,
// success otherwise.
func (s *CheckoutService) Finalize(ctx context.Context, sess *Session) (*model.Order, error) {
	user, err := s.users.GetUser(ctx, sess.TenantID)
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Step != StepPayment {
		return nil, ErrWrongStep
	}
	if sess.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	totals := sess.Cart.Totals(sess.AppliedCoupon, sess.SelectedShipping)
	order := model.Order{
		ID:             uuid.NewString(),
		Date:           time.Now(),
		CustomerName:   sess.Customer.Name,
		CustomerPhone:  sess.Customer.Phone,
		CustomerCity:   sess.Customer.City,
		CustomerState:  sess.Customer.State,
		CustomerCEP:    sess.CEP,
		ProductTitle:   itemSummary(sess.Cart.Items),
		ProductPrice:   totals.Total,
		DeliveryMethod: sess.DeliveryMethod,
		Address:        sess.Address,
		Status:         model.OrderStatusPending,
	}
	if sess.SelectedShipping != nil {
		order.ShippingService = sess.SelectedShipping.Service
		order.ShippingCost = sess.SelectedShipping.Price
	}

	if err := s.orders.AddOrder(ctx, sess.TenantID, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err := s.orders.DecrementStock(ctx, sess.TenantID, sess.Cart.Items); err != nil {
		s.log.Warn("stock decrement failed", "tenant", sess.TenantID, "order", order.ID, "error", err)
	}
	if sess.AppliedCoupon != nil {
		s.bumpCouponUsage(ctx, sess.TenantID, sess.AppliedCoupon.ID)
	}
	s.carts.ClearSnapshot(ctx, sess.TenantID, sess.ID)

	sess.Order = &order
	if user != nil && user.AutoPayment {
		sess.Step = StepGateway
	} else {
		sess.Step = StepSuccess
	}
	return &order, nil
}

func (s *CheckoutService) SelectPaymentMethod(sess *Session, method string) error {
	sess.Lock()
	defer sess.Unlock()

	if sess.Step != StepGateway {
		return ErrWrongStep
	}
	if method != "pix" && method != "card" {
		return ErrInvalidPayment
	}
	sess.PaymentMethod = method
	return nil
}

// SimulateApproval stands in for the payment processor: after an artificial
// delay the order is marked paid with the chosen method.
func (s *CheckoutService) SimulateApproval(ctx context.Context, sess *Session) (*model.Order, error) {
	sess.Lock()
	if sess.Step != StepGateway {
		sess.Unlock()
		return nil, ErrWrongStep
	}
	if sess.Order == nil {
		sess.Unlock()
		return nil, ErrNoOrder
	}
	orderID, method := sess.Order.ID, sess.PaymentMethod
	sess.Unlock()

	if s.paymentDelay > 0 {
		select {
		case <-time.After(s.paymentDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	sess.Lock()
	defer sess.Unlock()

	// The checkout may have restarted while the processor was pending; the
	// gateway state must still hold the same order.
	if sess.Step != StepGateway || sess.Order == nil || sess.Order.ID != orderID {
		return nil, ErrWrongStep
	}

	paid := model.OrderStatusPaid
	if _, err := s.orders.UpdateOrder(ctx, sess.TenantID, orderID, model.OrderPatch{
		Status:        &paid,
		PaymentMethod: &method,
	}); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	sess.Order.Status = paid
	sess.Order.PaymentMethod = method
	sess.Step = StepSuccess
	order := *sess.Order
	return &order, nil
}

// Close handles the customer leaving checkout. Before the success step, with
// name and phone already captured and a non-empty cart, it records exactly
// one abandoned cart; afterwards it records nothing. Fire-and-forget, no
// retry.
func (s *CheckoutService) Close(ctx context.Context, sess *Session) {
	sess.Lock()
	capture := sess.CheckoutOpen &&
		sess.Step != StepSuccess &&
		sess.Customer.Name != "" && sess.Customer.Phone != "" &&
		!sess.Cart.IsEmpty()
	sess.CheckoutOpen = false
	items := append([]model.CartItem(nil), sess.Cart.Items...)
	customer := sess.Customer
	total := sess.Cart.Subtotal()
	sess.Unlock()

	if !capture {
		return
	}
	cart := model.AbandonedCart{
		ID:            uuid.NewString(),
		CustomerName:  customer.Name,
		CustomerPhone: customer.Phone,
		Items:         items,
		Date:          time.Now(),
		TotalValue:    total,
	}
	if err := s.orders.SaveAbandonedCart(ctx, sess.TenantID, cart); err != nil {
		s.log.Warn("save abandoned cart failed", "tenant", sess.TenantID, "error", err)
	}
}

// PixPayload renders the BR-code for the session's current total.
func (s *CheckoutService) PixPayload(user *model.UserProfile, sess *Session) string {
	key := user.PixKey
	if key == "" {
		key = "test@pix.com"
	}
	return pix.BuildPayload(key, user.Name, user.StoreCity, s.Totals(sess).Total, pix.DefaultTxID)
}

// WhatsAppLink builds the wa.me deep link with the prefilled order summary —
// the seller-notification channel.
func (s *CheckoutService) WhatsAppLink(user *model.UserProfile, sess *Session) string {
	sess.Lock()
	defer sess.Unlock()

	methodText := "Retirada na Loja"
	switch sess.DeliveryMethod {
	case model.DeliveryLocal:
		methodText = "Entrega Local (Motoboy)"
	case model.DeliveryShipping:
		if sess.SelectedShipping != nil {
			methodText = "Envio via " + sess.SelectedShipping.Service
		} else {
			methodText = "Envio via transportadora"
		}
	}

	orderRef := ""
	paidVia := "Pix"
	if sess.Order != nil {
		if len(sess.Order.ID) > 4 {
			orderRef = sess.Order.ID[len(sess.Order.ID)-4:]
		} else {
			orderRef = sess.Order.ID
		}
	}
	if sess.PaymentMethod == "card" {
		paidVia = "Cartão"
	}
	total := sess.Cart.Totals(sess.AppliedCoupon, sess.SelectedShipping).Total

	var msg strings.Builder
	fmt.Fprintf(&msg, "Olá *%s*, pagamento APROVADO! ✅\n\n", user.Name)
	fmt.Fprintf(&msg, "O pedido #%s já foi pago via %s.\n\n", orderRef, paidVia)
	fmt.Fprintf(&msg, "👤 *Cliente:* %s (%s/%s)\n", sess.Customer.Name, sess.Customer.City, sess.Customer.State)
	fmt.Fprintf(&msg, "📋 *Itens:*\n%s\n", itemSummary(sess.Cart.Items))
	fmt.Fprintf(&msg, "💰 *Total:* R$ %s\n", total.StringFixed(2))
	fmt.Fprintf(&msg, "🚚 *Entrega:* %s\n", methodText)
	fmt.Fprintf(&msg, "📍 *Endereço:* %s\n", sess.Address)

	return "https://wa.me/" + user.Phone + "?text=" + url.QueryEscape(msg.String())
}

// QRImageURL turns any payload (a Pix BR-code or a share link) into a QR
// image URL.
func QRImageURL(payload string) string {
	return "https://api.qrserver.com/v1/create-qr-code/?size=200x200&data=" + url.QueryEscape(payload)
}

// ShareURL is the deep link that opens the storefront on one product.
func (s *CheckoutService) ShareURL(slug, productID string) string {
	return fmt.Sprintf("%s/s/%s?product=%s", s.baseURL, slug, url.QueryEscape(productID))
}

func (s *CheckoutService) bumpCouponUsage(ctx context.Context, tenantID, couponID string) {
	coupons, err := s.catalog.GetCoupons(ctx, tenantID)
	if err != nil {
		s.log.Warn("load coupons for usage bump", "tenant", tenantID, "error", err)
		return
	}
	for i := range coupons {
		if coupons[i].ID == couponID {
			coupons[i].UsageCount++
		}
	}
	if err := s.catalog.SetCoupons(ctx, tenantID, coupons); err != nil {
		s.log.Warn("save coupon usage", "tenant", tenantID, "error", err)
	}
}

// itemSummary flattens cart lines into the order's display text, e.g.
// "2x Camisa (M), 1x Boné".
func itemSummary(items []model.CartItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		line := fmt.Sprintf("%dx %s", item.Quantity, item.Title)
		if item.SelectedVariant != nil {
			line += fmt.Sprintf(" (%s)", item.SelectedVariant.Name)
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, ", ")
}
