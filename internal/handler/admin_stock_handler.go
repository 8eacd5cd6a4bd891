package handler

import (
	"net/http"
	"strconv"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminStockHandler struct {
	uc *usecase.AdminStockUsecase
}

func NewAdminStockHandler(uc *usecase.AdminStockUsecase) *AdminStockHandler {
	return &AdminStockHandler{uc: uc}
}

type StockUpdateRequest struct {
	Stock  int64  `json:"stock"`
	Reason string `json:"reason"`
}

func (h *AdminStockHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.PUT("/products/:id/stock", h.updateStock)
}

func (h *AdminStockHandler) updateStock(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req StockUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.AdjustStock(c.Request().Context(), adminID, productID, usecase.AdjustStockInput{
		NewStock: req.Stock,
		Reason:   req.Reason,
	}); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}
