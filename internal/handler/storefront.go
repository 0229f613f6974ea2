package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fleex/storefront-api/internal/dto"
	"github.com/fleex/storefront-api/internal/model"
	"github.com/fleex/storefront-api/internal/repository"
	"github.com/fleex/storefront-api/internal/service"
)

// StorefrontHandler serves the customer-facing surface: the public page, the
// per-visit session and its cart.
type StorefrontHandler struct {
	users    repository.UserStore
	catalog  repository.CatalogStore
	sessions *service.SessionManager
	carts    *service.CartService
	checkout *service.CheckoutService
	freight  *service.FreightService
}

func NewStorefrontHandler(
	users repository.UserStore,
	catalog repository.CatalogStore,
	sessions *service.SessionManager,
	carts *service.CartService,
	checkout *service.CheckoutService,
	freight *service.FreightService,
) *StorefrontHandler {
	return &StorefrontHandler{
		users:    users,
		catalog:  catalog,
		sessions: sessions,
		carts:    carts,
		checkout: checkout,
		freight:  freight,
	}
}

// resolveTenant maps the slug path segment to a tenant profile.
func (h *StorefrontHandler) resolveTenant(c *gin.Context) *model.UserProfile {
	user, err := h.users.FindUserBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "store not found"})
		return nil
	}
	return user
}

func (h *StorefrontHandler) session(c *gin.Context, tenantID string) *service.Session {
	sess, err := h.sessions.Get(tenantID, c.Param("sid"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil
	}
	return sess
}

// GetPage returns the storefront: store profile, active links, products and
// categories. The optional ?product= query selects one product (deep link).
func (h *StorefrontHandler) GetPage(c *gin.Context) {
	user := h.resolveTenant(c)
	if user == nil {
		return
	}
	ctx := c.Request.Context()

	links, err := h.catalog.GetLinks(ctx, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	products, err := h.catalog.GetProducts(ctx, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	categories, err := h.catalog.GetCategories(ctx, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	active := make([]model.LinkItem, 0, len(links))
	for _, l := range links {
		if l.Active {
			active = append(active, l)
		}
	}

	if productID := c.Query("product"); productID != "" {
		for _, p := range products {
			if p.ID == productID {
				c.JSON(http.StatusOK, gin.H{"store": dto.ToStoreResponse(user), "product": p})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	c.JSON(http.StatusOK, dto.PublicPageResponse{
		Store:      dto.ToStoreResponse(user),
		Links:      active,
		Products:   products,
		Categories: categories,
	})
}

// CreateSession opens a visit session. When the previous session left a
// non-empty cached cart behind, it is returned as a restore offer, not
// merged.
func (h *StorefrontHandler) CreateSession(c *gin.Context) {
	user := h.resolveTenant(c)
	if user == nil {
		return
	}

	var req struct {
		PreviousSessionID string `json:"previousSessionId"`
	}
	_ = c.ShouldBindJSON(&req)

	sess := h.sessions.Create(user.ID)
	resp := dto.SessionResponse{SessionID: sess.ID}

	if req.PreviousSessionID != "" {
		saved, err := h.carts.SavedCart(c.Request.Context(), user.ID, req.PreviousSessionID)
		if err == nil && len(saved) > 0 {
			sess.RestoreOffer = saved
			resp.RestoreOffer = saved
		}
	}
	c.JSON(http.StatusCreated, resp)
}

// RestoreCart accepts the restore offer, adopting the cached cart.
func (h *StorefrontHandler) RestoreCart(c *gin.Context) {
	user := h.resolveTenant(c)
	if user == nil {
		return
	}
	sess := h.session(c, user.ID)
	if sess == nil {
		return
	}

	sess.Lock()
	offer := sess.RestoreOffer
	sess.RestoreOffer = nil
	if len(offer) > 0 {
		sess.Cart.Items = offer
	}
	sess.Unlock()

	c.JSON(http.StatusOK, h.cartResponse(sess))
}

// DiscardSavedCart declines the restore offer.
func (h *StorefrontHandler) DiscardSavedCart(c *gin.Context) {
	user := h.resolveTenant(c)
	if user == nil {
		return
	}
	sess := h.session(c, user.ID)
	if sess == nil {
		return
	}

	sess.Lock()
	sess.RestoreOffer = nil
	sess.Unlock()
	c.Status(http.StatusNoContent)
}

func (h *StorefrontHandler) GetCart(c *gin.Context) {
	user := h.resolveTenant(c)
	if user == nil {
		return
	}
	sess := h.session(c, user.ID)
	if sess == nil {
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(sess))
}

func (h *StorefrontHandler) AddCartItem(c *gin.Context) {
	user := h.resolveTenant(c)
	if user == nil {
		return
	}
	sess := h.session(c, user.ID)
	if sess == nil {
		return
	}

	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess.Lock()
	sess.RestoreOffer = nil
	err := h.carts.AddToCart(c.Request.Context(), user.ID, sess.ID, &sess.Cart, req.ProductID, req.VariantID)
	sess.Unlock()

	switch {
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, service.ErrVariantRequired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "selecione uma opção"})
	case errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": "estoque insuficiente"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	default:
		c.JSON(http.StatusCreated, h.cartResponse(sess))
	}
}

func (h *StorefrontHandler) UpdateCartItem(c *gin.Context) {
	user := h.resolveTenant(c)
	if user == nil {
		return
	}
	sess := h.session(c, user.ID)
	if sess == nil {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}
	var req dto.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess.Lock()
	err = h.carts.UpdateQuantity(c.Request.Context(), user.ID, sess.ID, &sess.Cart, index, req.Delta)
	sess.Unlock()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(sess))
}

func (h *StorefrontHandler) RemoveCartItem(c *gin.Context) {
	user := h.resolveTenant(c)
	if user == nil {
		return
	}
	sess := h.session(c, user.ID)
	if sess == nil {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}

	sess.Lock()
	sess.RestoreOffer = nil
	h.carts.RemoveFromCart(c.Request.Context(), user.ID, sess.ID, &sess.Cart, index)
	sess.Unlock()
	c.JSON(http.StatusOK, h.cartResponse(sess))
}

// QuoteFreight backs the product-page shipping calculator.
func (h *StorefrontHandler) QuoteFreight(c *gin.Context) {
	user := h.resolveTenant(c)
	if user == nil {
		return
	}

	var req dto.FreightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quotes, err := h.freight.Quote(c.Request.Context(), req.CEP)
	switch {
	case errors.Is(err, service.ErrInvalidPostalCode):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "O CEP deve conter 8 números."})
	case errors.Is(err, service.ErrPostalCodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "CEP não encontrado."})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	default:
		c.JSON(http.StatusOK, gin.H{"quotes": quotes})
	}
}

// ClickLink counts a tap on a bio link and returns its destination.
func (h *StorefrontHandler) ClickLink(c *gin.Context) {
	user := h.resolveTenant(c)
	if user == nil {
		return
	}
	ctx := c.Request.Context()

	links, err := h.catalog.GetLinks(ctx, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	linkID := c.Param("id")
	var target *model.LinkItem
	for i := range links {
		if links[i].ID == linkID {
			links[i].Clicks++
			target = &links[i]
			break
		}
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
		return
	}
	// Counting is best effort; the redirect target still goes back.
	if err := h.catalog.SetLinks(ctx, user.ID, links); err != nil {
		c.JSON(http.StatusOK, gin.H{"url": target.URL})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": target.URL, "clicks": target.Clicks})
}

// ShareProduct returns the deep link and its QR image for one product.
func (h *StorefrontHandler) ShareProduct(c *gin.Context) {
	user := h.resolveTenant(c)
	if user == nil {
		return
	}
	url := h.checkout.ShareURL(user.Slug, c.Param("id"))
	c.JSON(http.StatusOK, dto.ShareResponse{URL: url, QRImage: service.QRImageURL(url)})
}

func (h *StorefrontHandler) cartResponse(sess *service.Session) dto.CartResponse {
	sess.Lock()
	defer sess.Unlock()
	items := sess.Cart.Items
	if items == nil {
		items = []model.CartItem{}
	}
	return dto.CartResponse{
		Items:  items,
		Count:  sess.Cart.Count(),
		Totals: sess.Cart.Totals(sess.AppliedCoupon, sess.SelectedShipping),
	}
}
