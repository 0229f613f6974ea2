package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlanType string

const (
	PlanFree         PlanType = "FREE"
	PlanPro          PlanType = "PRO"
	PlanBusiness     PlanType = "BUSINESS"
	PlanProfessional PlanType = "PROFESSIONAL"
)

type DeliveryMethod string

const (
	DeliveryPickup   DeliveryMethod = "pickup"
	DeliveryLocal    DeliveryMethod = "delivery"
	DeliveryShipping DeliveryMethod = "shipping"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

type SubAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Password string `json:"password"` // bcrypt hash
	Role     string `json:"role"`     // admin | editor
}

type ActivityLog struct {
	ID        string    `json:"id"`
	ActorName string    `json:"actorName"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UserProfile is the tenant record. The checkout core reads it to decide
// delivery-method eligibility and the payment flow; it never mutates it.
type UserProfile struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	Password     string        `json:"password,omitempty"` // bcrypt hash
	Name         string        `json:"name"`
	Slug         string        `json:"slug"`
	Bio          string        `json:"bio"`
	AvatarURL    string        `json:"avatarUrl"`
	Plan         PlanType      `json:"plan"`
	ThemeID      string        `json:"themeId"`
	PrimaryColor string        `json:"primaryColor"`
	Phone        string        `json:"phone"`  // WhatsApp number
	PixKey       string        `json:"pixKey"` // Pix key for direct payments
	StoreCEP     string        `json:"storeCep,omitempty"`
	StoreCity    string        `json:"storeCity,omitempty"`
	StoreState   string        `json:"storeState,omitempty"`
	AutoPayment  bool          `json:"autoPaymentActive"`
	SubAccounts  []SubAccount  `json:"subAccounts,omitempty"`
	ActivityLogs []ActivityLog `json:"activityLogs,omitempty"`
}

type LinkItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
	Clicks int    `json:"clicks"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Variant struct {
	ID   string `json:"id"`
	Name string `json:"name"` // e.g. "P", "M", "Azul"
}

type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Images      []string        `json:"images"`
	CategoryID  string          `json:"categoryId"`
	Active      bool            `json:"active"`
	Sales       int             `json:"sales"`
	Variants    []Variant       `json:"variants,omitempty"`
	// Dimensions for freight.
	WeightKg float64 `json:"weight,omitempty"`
	WidthCm  float64 `json:"width,omitempty"`
	HeightCm float64 `json:"height,omitempty"`
	LengthCm float64 `json:"length,omitempty"`
}

// CartItem is a product snapshot plus quantity and the chosen variant.
// Line identity for merge purposes is (ProductID, variant id or "default").
type CartItem struct {
	Product
	Quantity        int      `json:"quantity"`
	SelectedVariant *Variant `json:"selectedVariant,omitempty"`
}

// VariantKey returns the dedup key half contributed by the selected variant.
func (ci CartItem) VariantKey() string {
	if ci.SelectedVariant != nil {
		return ci.SelectedVariant.ID
	}
	return "default"
}

type Coupon struct {
	ID              string `json:"id"`
	Code            string `json:"code"` // stored uppercase
	DiscountPercent int    `json:"discountPercent"`
	UsageCount      int    `json:"usageCount"`
}

type ShippingQuote struct {
	Service string          `json:"service"`
	Price   decimal.Decimal `json:"price"`
	Days    int             `json:"days"`
}

type Order struct {
	ID              string          `json:"id"`
	Date            time.Time       `json:"date"`
	CustomerName    string          `json:"customerName"`
	CustomerPhone   string          `json:"customerPhone"`
	CustomerCity    string          `json:"customerCity,omitempty"`
	CustomerState   string          `json:"customerState,omitempty"`
	CustomerCEP     string          `json:"customerCep,omitempty"`
	ProductTitle    string          `json:"productTitle"` // flattened item summary
	ProductPrice    decimal.Decimal `json:"productPrice"` // total after discount and shipping
	DeliveryMethod  DeliveryMethod  `json:"deliveryMethod"`
	ShippingService string          `json:"shippingService,omitempty"`
	ShippingCost    decimal.Decimal `json:"shippingCost"`
	TrackingCode    string          `json:"trackingCode,omitempty"`
	Address         string          `json:"address,omitempty"`
	Status          OrderStatus     `json:"status"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
}

// OrderPatch carries the merge-updatable order fields. Nil means "leave as is".
type OrderPatch struct {
	Status        *OrderStatus `json:"status,omitempty"`
	PaymentMethod *string      `json:"paymentMethod,omitempty"`
	TrackingCode  *string      `json:"trackingCode,omitempty"`
}

type AbandonedCart struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	Items         []CartItem      `json:"items"`
	Date          time.Time       `json:"date"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	Recovered     bool            `json:"recovered"`
}
