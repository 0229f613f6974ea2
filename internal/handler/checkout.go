package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleex/storefront-api/internal/dto"
	"github.com/fleex/storefront-api/internal/model"
	"github.com/fleex/storefront-api/internal/repository"
	"github.com/fleex/storefront-api/internal/service"
)

// CheckoutHandler exposes the checkout state machine over HTTP. Every route
// is nested under the session, so state lives server-side and the client
// only sends intents.
type CheckoutHandler struct {
	users    repository.UserStore
	sessions *service.SessionManager
	checkout *service.CheckoutService
}

func NewCheckoutHandler(users repository.UserStore, sessions *service.SessionManager, checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{users: users, sessions: sessions, checkout: checkout}
}

func (h *CheckoutHandler) resolve(c *gin.Context) (*model.UserProfile, *service.Session) {
	user, err := h.users.FindUserBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, nil
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "store not found"})
		return nil, nil
	}
	sess, err := h.sessions.Get(user.ID, c.Param("sid"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, nil
	}
	return user, sess
}

// checkoutError maps the state machine's sentinel errors to HTTP statuses.
func checkoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWrongStep):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrMissingDetails),
		errors.Is(err, service.ErrMissingAddress),
		errors.Is(err, service.ErrInvalidDelivery),
		errors.Is(err, service.ErrInvalidPayment):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSelectShipping),
		errors.Is(err, service.ErrShippingRequired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrCouponInvalid):
		c.JSON(http.StatusNotFound, gin.H{"error": "Cupom inválido ou expirado."})
	case errors.Is(err, service.ErrNoOrder):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidPostalCode):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "O CEP deve conter 8 números."})
	case errors.Is(err, service.ErrPostalCodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "CEP não encontrado."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (h *CheckoutHandler) Begin(c *gin.Context) {
	user, sess := h.resolve(c)
	if sess == nil {
		return
	}
	if err := h.checkout.Begin(sess); err != nil {
		checkoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state(user, sess))
}

func (h *CheckoutHandler) State(c *gin.Context) {
	user, sess := h.resolve(c)
	if sess == nil {
		return
	}
	c.JSON(http.StatusOK, h.state(user, sess))
}

func (h *CheckoutHandler) SubmitDetails(c *gin.Context) {
	user, sess := h.resolve(c)
	if sess == nil {
		return
	}
	var req dto.DetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.checkout.SubmitDetails(sess, service.CustomerDetails{
		Name:  req.Name,
		Phone: req.Phone,
		City:  req.City,
		State: req.State,
	})
	if err != nil {
		checkoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state(user, sess))
}

func (h *CheckoutHandler) SubmitDelivery(c *gin.Context) {
	user, sess := h.resolve(c)
	if sess == nil {
		return
	}
	var req dto.DeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.checkout.SubmitDelivery(c.Request.Context(), sess, req.Method); err != nil {
		checkoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state(user, sess))
}

func (h *CheckoutHandler) QuoteFreight(c *gin.Context) {
	_, sess := h.resolve(c)
	if sess == nil {
		return
	}
	var req dto.FreightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quotes, err := h.checkout.QuoteFreight(c.Request.Context(), sess, req.CEP)
	if err != nil {
		checkoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

func (h *CheckoutHandler) SelectShipping(c *gin.Context) {
	user, sess := h.resolve(c)
	if sess == nil {
		return
	}
	var req dto.SelectShippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.checkout.SelectShipping(sess, req.Service); err != nil {
		checkoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state(user, sess))
}

func (h *CheckoutHandler) SubmitAddress(c *gin.Context) {
	user, sess := h.resolve(c)
	if sess == nil {
		return
	}
	var req dto.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.checkout.SubmitAddress(sess, req.Address); err != nil {
		checkoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state(user, sess))
}

func (h *CheckoutHandler) ApplyCoupon(c *gin.Context) {
	user, sess := h.resolve(c)
	if sess == nil {
		return
	}
	var req dto.CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	coupon, err := h.checkout.ApplyCoupon(c.Request.Context(), sess, req.Code)
	if err != nil {
		checkoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupon": coupon, "totals": h.checkout.Totals(sess), "state": h.state(user, sess)})
}

func (h *CheckoutHandler) RemoveCoupon(c *gin.Context) {
	user, sess := h.resolve(c)
	if sess == nil {
		return
	}
	h.checkout.RemoveCoupon(sess)
	c.JSON(http.StatusOK, h.state(user, sess))
}

// Finalize creates the order. Depending on the tenant's gateway setting the
// customer either lands on the simulated gateway or straight on success.
func (h *CheckoutHandler) Finalize(c *gin.Context) {
	user, sess := h.resolve(c)
	if sess == nil {
		return
	}
	order, err := h.checkout.Finalize(c.Request.Context(), sess)
	if err != nil {
		checkoutError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order, "state": h.state(user, sess)})
}

func (h *CheckoutHandler) SelectPaymentMethod(c *gin.Context) {
	user, sess := h.resolve(c)
	if sess == nil {
		return
	}
	var req dto.PaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.checkout.SelectPaymentMethod(sess, req.Method); err != nil {
		checkoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.state(user, sess))
}

func (h *CheckoutHandler) Approve(c *gin.Context) {
	user, sess := h.resolve(c)
	if sess == nil {
		return
	}
	order, err := h.checkout.SimulateApproval(c.Request.Context(), sess)
	if err != nil {
		checkoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Order:        *order,
		WhatsAppLink: h.checkout.WhatsAppLink(user, sess),
	})
}

// Pix returns the BR-code payload for the current total plus its QR image.
func (h *CheckoutHandler) Pix(c *gin.Context) {
	user, sess := h.resolve(c)
	if sess == nil {
		return
	}
	payload := h.checkout.PixPayload(user, sess)
	c.JSON(http.StatusOK, dto.PixResponse{
		Payload: payload,
		QRImage: service.QRImageURL(payload),
		Amount:  h.checkout.Totals(sess).Total,
	})
}

// Success returns the finalized order and the seller's WhatsApp link.
func (h *CheckoutHandler) Success(c *gin.Context) {
	user, sess := h.resolve(c)
	if sess == nil {
		return
	}
	sess.Lock()
	order := sess.Order
	sess.Unlock()
	if order == nil {
		checkoutError(c, service.ErrNoOrder)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Order:        *order,
		WhatsAppLink: h.checkout.WhatsAppLink(user, sess),
	})
}

// Close ends the checkout; leaving before success may record an abandoned
// cart.
func (h *CheckoutHandler) Close(c *gin.Context) {
	_, sess := h.resolve(c)
	if sess == nil {
		return
	}
	h.checkout.Close(c.Request.Context(), sess)
	c.Status(http.StatusNoContent)
}

func (h *CheckoutHandler) state(user *model.UserProfile, sess *service.Session) dto.CheckoutStateResponse {
	branch := h.checkout.DeliveryBranchFor(user, sess)

	sess.Lock()
	defer sess.Unlock()
	return dto.CheckoutStateResponse{
		Step:             sess.Step,
		Customer:         sess.Customer,
		Delivery:         branch,
		DeliveryMethod:   sess.DeliveryMethod,
		Address:          sess.Address,
		CEP:              sess.CEP,
		ShippingOptions:  sess.ShippingOptions,
		SelectedShipping: sess.SelectedShipping,
		AppliedCoupon:    sess.AppliedCoupon,
		PaymentMethod:    sess.PaymentMethod,
		Totals:           sess.Cart.Totals(sess.AppliedCoupon, sess.SelectedShipping),
		Order:            sess.Order,
	}
}
