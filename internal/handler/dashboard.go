package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleex/storefront-api/internal/dto"
	"github.com/fleex/storefront-api/internal/middleware"
	"github.com/fleex/storefront-api/internal/model"
	"github.com/fleex/storefront-api/internal/repository"
	"github.com/fleex/storefront-api/internal/service"
	"github.com/fleex/storefront-api/internal/worker"
)

// DashboardHandler serves the authenticated owner surface: orders, abandoned
// carts, catalog editing and the profile.
type DashboardHandler struct {
	users     repository.UserStore
	catalog   repository.CatalogStore
	dashboard *service.DashboardService
	autosaver *worker.Autosaver
	sync      *worker.SyncLoop
}

func NewDashboardHandler(
	users repository.UserStore,
	catalog repository.CatalogStore,
	dashboard *service.DashboardService,
	autosaver *worker.Autosaver,
	sync *worker.SyncLoop,
) *DashboardHandler {
	return &DashboardHandler{
		users:     users,
		catalog:   catalog,
		dashboard: dashboard,
		autosaver: autosaver,
		sync:      sync,
	}
}

func (h *DashboardHandler) Me(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile applies the editable profile fields. Credentials and plan are
// not settable through this endpoint.
func (h *DashboardHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name         *string `json:"name"`
		Bio          *string `json:"bio"`
		AvatarURL    *string `json:"avatarUrl"`
		ThemeID      *string `json:"themeId"`
		PrimaryColor *string `json:"primaryColor"`
		Phone        *string `json:"phone"`
		PixKey       *string `json:"pixKey"`
		AutoPayment  *bool   `json:"autoPaymentActive"`
		StoreCity    *string `json:"storeCity"`
		StoreState   *string `json:"storeState"`
		StoreCEP     *string `json:"storeCep"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), middleware.GetTenantID(c), func(u *model.UserProfile) {
		if req.Name != nil {
			u.Name = *req.Name
		}
		if req.Bio != nil {
			u.Bio = *req.Bio
		}
		if req.AvatarURL != nil {
			u.AvatarURL = *req.AvatarURL
		}
		if req.ThemeID != nil {
			u.ThemeID = *req.ThemeID
		}
		if req.PrimaryColor != nil {
			u.PrimaryColor = *req.PrimaryColor
		}
		if req.Phone != nil {
			u.Phone = *req.Phone
		}
		if req.PixKey != nil {
			u.PixKey = *req.PixKey
		}
		if req.AutoPayment != nil {
			u.AutoPayment = *req.AutoPayment
		}
		if req.StoreCity != nil {
			u.StoreCity = *req.StoreCity
		}
		if req.StoreState != nil {
			u.StoreState = *req.StoreState
		}
		if req.StoreCEP != nil {
			u.StoreCEP = *req.StoreCEP
		}
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *DashboardHandler) GetCatalog(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	ctx := c.Request.Context()

	links, err := h.catalog.GetLinks(ctx, tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	products, err := h.catalog.GetProducts(ctx, tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	categories, err := h.catalog.GetCategories(ctx, tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	coupons, err := h.catalog.GetCoupons(ctx, tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, dto.CatalogSaveRequest{
		Links:      links,
		Products:   products,
		Categories: categories,
		Coupons:    coupons,
	})
}

// SaveCatalog enqueues the edited catalog for the debounced autosaver. Rapid
// successive edits coalesce into one write per tenant. Product count is
// checked against the plan before accepting.
func (h *DashboardHandler) SaveCatalog(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req dto.CatalogSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), tenantID)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	features := model.FeaturesFor(user.Plan)
	if len(req.Products) > features.ProductLimit {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "product limit reached for plan " + features.Name,
			"limit": features.ProductLimit,
		})
		return
	}
	if len(req.Coupons) > 0 && !features.Coupons {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "coupons are not available on plan " + features.Name})
		return
	}

	h.autosaver.Enqueue(tenantID, worker.CatalogSnapshot{
		Links:      req.Links,
		Products:   req.Products,
		Categories: req.Categories,
		Coupons:    req.Coupons,
	})
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// ListOrders also registers the tenant with the sync loop so new orders get
// broadcast while the dashboard stays open.
func (h *DashboardHandler) ListOrders(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	h.sync.Watch(tenantID)

	orders, err := h.dashboard.ListOrders(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, dto.OrderListResponse{Orders: orders, Total: len(orders)})
}

func (h *DashboardHandler) UpdateOrderStatus(c *gin.Context) {
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orders, err := h.dashboard.UpdateOrderStatus(
		c.Request.Context(),
		middleware.GetTenantID(c),
		c.Param("id"),
		middleware.GetActor(c),
		req.Status,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, dto.OrderListResponse{Orders: orders, Total: len(orders)})
}

// ListAbandonedCarts requires the plan's cart recovery feature.
func (h *DashboardHandler) ListAbandonedCarts(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	user, err := h.users.GetUser(c.Request.Context(), tenantID)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	if !model.FeaturesFor(user.Plan).CartRecovery {
		c.JSON(http.StatusForbidden, gin.H{"error": "cart recovery is not available on your plan"})
		return
	}

	carts, err := h.dashboard.ListAbandonedCarts(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, dto.AbandonedCartListResponse{Carts: carts, Total: len(carts)})
}

// ExportCustomers streams the customer list as a CSV download.
func (h *DashboardHandler) ExportCustomers(c *gin.Context) {
	data, err := h.dashboard.ExportCustomersCSV(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="clientes.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *DashboardHandler) ActivityLog(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	logs := user.ActivityLogs
	if logs == nil {
		logs = []model.ActivityLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
