package handler

import (
	"net/http"
	"strconv"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /debts の顧客向けAPI（自分の売掛の参照だけ。入金記録は管理者側）
type DebtHandler struct {
	uc *usecase.DebtUsecase
}

func NewDebtHandler(uc *usecase.DebtUsecase) *DebtHandler {
	return &DebtHandler{uc: uc}
}

func (h *DebtHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/debts")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("", h.list)
	g.GET("/:id", h.detail)
}

func (h *DebtHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.ListMyDebts(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *DebtHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.GetMyDebtDetail(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
