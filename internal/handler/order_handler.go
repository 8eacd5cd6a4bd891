package handler

import (
	"io"
	"net/http"
	"strconv"

	"app/internal/config"
	"app/internal/gateway"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// 証憑アップロードの上限（5MB）
const maxEvidenceSize = 5 << 20

type OrderHandler struct {
	uc       *usecase.CheckoutUsecase
	evidence gateway.EvidenceStore
}

func NewOrderHandler(uc *usecase.CheckoutUsecase, evidence gateway.EvidenceStore) *OrderHandler {
	return &OrderHandler{uc: uc, evidence: evidence}
}

type OrderLineRequest struct {
	ItemType string `json:"item_type"`
	ItemID   int64  `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

type ShippingRequest struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Province      string `json:"province"`
	PostalCode    string `json:"postal_code"`
}

type OrderCreateRequest struct {
	Lines              []OrderLineRequest `json:"lines"`
	Shipping           ShippingRequest    `json:"shipping"`
	PaymentMethod      string             `json:"payment_method"`
	PaidAmount         int64              `json:"paid_amount"`
	PaymentEvidenceRef string             `json:"payment_evidence_ref"`
	PromoCode          string             `json:"promo_code"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.PUT("/:id/payment-evidence", h.attachPaymentEvidence)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := c.Request().Header.Get("X-Idempotency-Key")

	lines := make([]usecase.CheckoutLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, usecase.CheckoutLineInput{
			ItemType: l.ItemType,
			ItemID:   l.ItemID,
			Quantity: l.Quantity,
		})
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), userID, usecase.PlaceOrderInput{
		Lines: lines,
		Shipping: usecase.ShippingInput{
			RecipientName: req.Shipping.RecipientName,
			Phone:         req.Shipping.Phone,
			Address:       req.Shipping.Address,
			City:          req.Shipping.City,
			Province:      req.Shipping.Province,
			PostalCode:    req.Shipping.PostalCode,
		},
		PaymentMethod:      req.PaymentMethod,
		PaidAmount:         req.PaidAmount,
		PaymentEvidenceRef: req.PaymentEvidenceRef,
		PromoCode:          req.PromoCode,
		IdempotencyKey:     idemKey,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.GetMyOrderDetail(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 入金証憑のアップロード。ファイルはストアに預けて参照だけを注文に残す。
func (h *OrderHandler) attachPaymentEvidence(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file required"})
	}
	if fh.Size > maxEvidenceSize {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file too large"})
	}

	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid file"})
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxEvidenceSize))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid file"})
	}

	ref, err := h.evidence.Save(c.Request().Context(), fh.Filename, data)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "evidence store error"})
	}

	if err := h.uc.AttachPaymentEvidence(c.Request().Context(), userID, id, ref); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"evidence_ref": ref})
}
