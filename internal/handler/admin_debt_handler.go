package handler

import (
	"net/http"
	"strconv"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminDebtHandler struct {
	uc *usecase.DebtUsecase
}

func NewAdminDebtHandler(uc *usecase.DebtUsecase) *AdminDebtHandler {
	return &AdminDebtHandler{uc: uc}
}

type RecordPaymentRequest struct {
	Amount      int64  `json:"amount"`
	EvidenceRef string `json:"evidence_ref"`
	Note        string `json:"note"`
}

func (h *AdminDebtHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/debts", h.list)
	admin.POST("/debts/:id/payments", h.recordPayment)
}

func (h *AdminDebtHandler) list(c echo.Context) error {
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

	var userID *int64
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
		}
		userID = &id
	}

	//open=trueで残債ありだけ
	openOnly := c.QueryParam("open") == "true"

	out, err := h.uc.ListAdmin(c.Request().Context(), repository.AdminDebtListFilter{
		Page:     page,
		Limit:    limit,
		UserID:   userID,
		OpenOnly: openOnly,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminDebtHandler) recordPayment(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	debtID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req RecordPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.RecordPayment(c.Request().Context(), adminID, debtID, usecase.RecordPaymentInput{
		Amount:      req.Amount,
		EvidenceRef: req.EvidenceRef,
		Note:        req.Note,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
