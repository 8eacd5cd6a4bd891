package handler

import (
	"net/http"
	"strconv"
	"time"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type SuccessResponse struct {
	Message string `json:"message"`
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get("user_id")
	if v == nil {
		return 0, false
	}

	id, ok := v.(int64)
	if !ok {
		return 0, false
	}

	return id, true
}

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

type PackingEvidenceRequest struct {
	EvidenceRef string `json:"evidence_ref"`
}

type ShipOrderRequest struct {
	ShippingMethod      string `json:"shipping_method"`
	CarrierName         string `json:"carrier_name"`
	TrackingID          string `json:"tracking_id"`
	TrackingEvidenceRef string `json:"tracking_evidence_ref"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/orders", h.list)
	admin.PUT("/orders/:id/approve", h.approve)
	admin.PUT("/orders/:id/reject", h.reject)
	admin.PUT("/orders/:id/packing-evidence", h.attachPackingEvidence)
	admin.PUT("/orders/:id/ship", h.ship)
	admin.PUT("/orders/:id/complete", h.complete)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		page = p
	}

	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = l
	}

	status := c.QueryParam("status")

	var userID *int64
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
		}
		userID = &id
	}

	var fromPtr *time.Time
	if v := c.QueryParam("from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
		}
		fromPtr = &tm
	}

	var toPtr *time.Time
	if v := c.QueryParam("to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to"})
		}
		toPtr = &tm
	}

	out, err := h.uc.List(c.Request().Context(), repository.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: status,
		UserID: userID,
		From:   fromPtr,
		To:     toPtr,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) approve(c echo.Context) error {
	adminID, orderID, ok := adminAndOrderID(c)
	if !ok {
		return nil
	}

	if err := h.uc.Approve(c.Request().Context(), adminID, orderID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "approved"})
}

func (h *AdminOrderHandler) reject(c echo.Context) error {
	adminID, orderID, ok := adminAndOrderID(c)
	if !ok {
		return nil
	}

	if err := h.uc.Reject(c.Request().Context(), adminID, orderID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "rejected"})
}

func (h *AdminOrderHandler) attachPackingEvidence(c echo.Context) error {
	adminID, orderID, ok := adminAndOrderID(c)
	if !ok {
		return nil
	}

	var req PackingEvidenceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.AttachPackingEvidence(c.Request().Context(), adminID, orderID, req.EvidenceRef); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "attached"})
}

func (h *AdminOrderHandler) ship(c echo.Context) error {
	adminID, orderID, ok := adminAndOrderID(c)
	if !ok {
		return nil
	}

	var req ShipOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.Ship(c.Request().Context(), adminID, orderID, usecase.ShipOrderInput{
		Method:              req.ShippingMethod,
		CarrierName:         req.CarrierName,
		TrackingID:          req.TrackingID,
		TrackingEvidenceRef: req.TrackingEvidenceRef,
	}); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "shipped"})
}

func (h *AdminOrderHandler) complete(c echo.Context) error {
	adminID, orderID, ok := adminAndOrderID(c)
	if !ok {
		return nil
	}

	if err := h.uc.Complete(c.Request().Context(), adminID, orderID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "completed"})
}

// 管理者IDとパスのidをまとめて取る（falseのときはレスポンス書き込み済み）
func adminAndOrderID(c echo.Context) (int64, int64, bool) {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		_ = c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return 0, 0, false
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return 0, 0, false
	}

	return adminID, orderID, true
}
