package dto

import (
	"github.com/shopspring/decimal"

	"github.com/fleex/storefront-api/internal/model"
	"github.com/fleex/storefront-api/internal/service"
)

// --- Auth ---

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Slug     string `json:"slug" binding:"required,alphanum,lowercase"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SubAccountLoginRequest struct {
	Slug     string `json:"slug" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	Actor string       `json:"actor"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID     string         `json:"id"`
	Email  string         `json:"email"`
	Name   string         `json:"name"`
	Slug   string         `json:"slug"`
	Plan   model.PlanType `json:"plan"`
	Avatar string         `json:"avatarUrl"`
}

func ToUserResponse(u *model.UserProfile) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, Slug: u.Slug, Plan: u.Plan, Avatar: u.AvatarURL}
}

// --- Public page ---

type PublicPageResponse struct {
	Store      StoreResponse    `json:"store"`
	Links      []model.LinkItem `json:"links"`
	Products   []model.Product  `json:"products"`
	Categories []model.Category `json:"categories"`
}

// StoreResponse is the public slice of the tenant profile (no email, no
// secrets).
type StoreResponse struct {
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	Bio          string         `json:"bio"`
	AvatarURL    string         `json:"avatarUrl"`
	ThemeID      string         `json:"themeId"`
	PrimaryColor string         `json:"primaryColor"`
	Plan         model.PlanType `json:"plan"`
	StoreCity    string         `json:"storeCity,omitempty"`
	StoreState   string         `json:"storeState,omitempty"`
	AutoPayment  bool           `json:"autoPaymentActive"`
}

func ToStoreResponse(u *model.UserProfile) StoreResponse {
	return StoreResponse{
		Name:         u.Name,
		Slug:         u.Slug,
		Bio:          u.Bio,
		AvatarURL:    u.AvatarURL,
		ThemeID:      u.ThemeID,
		PrimaryColor: u.PrimaryColor,
		Plan:         u.Plan,
		StoreCity:    u.StoreCity,
		StoreState:   u.StoreState,
		AutoPayment:  u.AutoPayment,
	}
}

type SessionResponse struct {
	SessionID    string           `json:"sessionId"`
	RestoreOffer []model.CartItem `json:"restoreOffer,omitempty"`
}

type ShareResponse struct {
	URL     string `json:"url"`
	QRImage string `json:"qrImage"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	VariantID string `json:"variantId"`
}

type UpdateQuantityRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type CartResponse struct {
	Items  []model.CartItem `json:"items"`
	Count  int              `json:"count"`
	Totals service.Totals   `json:"totals"`
}

// --- Checkout ---

type DetailsRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
	City  string `json:"city" binding:"required"`
	State string `json:"state"`
}

type DeliveryRequest struct {
	Method model.DeliveryMethod `json:"method" binding:"required"`
}

type FreightRequest struct {
	CEP string `json:"cep" binding:"required"`
}

type SelectShippingRequest struct {
	Service string `json:"service" binding:"required"`
}

type AddressRequest struct {
	Address string `json:"address" binding:"required"`
}

type CouponRequest struct {
	Code string `json:"code" binding:"required"`
}

type PaymentMethodRequest struct {
	Method string `json:"method" binding:"required,oneof=pix card"`
}

type CheckoutStateResponse struct {
	Step             service.Step            `json:"step"`
	Customer         service.CustomerDetails `json:"customer"`
	Delivery         service.DeliveryBranch  `json:"delivery"`
	DeliveryMethod   model.DeliveryMethod    `json:"deliveryMethod,omitempty"`
	Address          string                  `json:"address,omitempty"`
	CEP              string                  `json:"cep,omitempty"`
	ShippingOptions  []model.ShippingQuote   `json:"shippingOptions,omitempty"`
	SelectedShipping *model.ShippingQuote    `json:"selectedShipping,omitempty"`
	AppliedCoupon    *model.Coupon           `json:"appliedCoupon,omitempty"`
	PaymentMethod    string                  `json:"paymentMethod"`
	Totals           service.Totals          `json:"totals"`
	Order            *model.Order            `json:"order,omitempty"`
}

type PixResponse struct {
	Payload string          `json:"payload"`
	QRImage string          `json:"qrImage"`
	Amount  decimal.Decimal `json:"amount"`
}

type SuccessResponse struct {
	Order        model.Order `json:"order"`
	WhatsAppLink string      `json:"whatsappLink"`
}

// --- Dashboard ---

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required,oneof=pending paid shipped completed canceled"`
}

type OrderListResponse struct {
	Orders []model.Order `json:"orders"`
	Total  int           `json:"total"`
}

type AbandonedCartListResponse struct {
	Carts []model.AbandonedCart `json:"carts"`
	Total int                   `json:"total"`
}

type CatalogSaveRequest struct {
	Links      []model.LinkItem `json:"links"`
	Products   []model.Product  `json:"products"`
	Categories []model.Category `json:"categories"`
	Coupons    []model.Coupon   `json:"coupons"`
}
