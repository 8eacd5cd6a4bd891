package usecase_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"app/internal/domain/model"
	"app/internal/gateway"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type checkoutMocks struct {
	tx         *TxManagerMock
	orders     *OrderRepoMock
	orderLines *OrderLineRepoMock
	debts      *DebtRepoMock
	inventory  *InventoryRepoMock
	products   *ProductRepoMock
	bundles    *BundleRepoMock
	counters   *CounterRepoMock
	promos     *PromoResolverMock
}

func newCheckoutUsecase() (*usecase.CheckoutUsecase, *checkoutMocks) {
	m := &checkoutMocks{
		tx:         &TxManagerMock{},
		orders:     &OrderRepoMock{},
		orderLines: &OrderLineRepoMock{},
		debts:      &DebtRepoMock{},
		inventory:  &InventoryRepoMock{},
		products:   &ProductRepoMock{},
		bundles:    &BundleRepoMock{},
		counters:   &CounterRepoMock{},
		promos:     &PromoResolverMock{},
	}
	m.tx.Repos = &TxReposMock{
		orders:     m.orders,
		orderLines: m.orderLines,
		debts:      m.debts,
		inventory:  m.inventory,
		products:   m.products,
		bundles:    m.bundles,
		counters:   m.counters,
	}
	m.tx.On("WithinTx", mock.Anything).Return()
	return usecase.NewCheckoutUsecase(m.tx, m.promos), m
}

func validShipping() usecase.ShippingInput {
	return usecase.ShippingInput{
		RecipientName: "山田太郎",
		Phone:         "080-0000-0000",
		Address:       "1-2-3 Somewhere",
		City:          "Shibuya",
		Province:      "Tokyo",
		PostalCode:    "150-0001",
	}
}

func TestPlaceOrder_PartialOpensDebtForRemainder(t *testing.T) {
	uc, m := newCheckoutUsecase()
	ctx := context.Background()

	//価格75,000を2点 → 小計150,000、プロモで15,000引き、合計135,000
	m.orders.On("FindByIdempotencyKey", mock.Anything, int64(9), "key-partial-1").
		Return(model.Order{}, false, nil)
	m.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Go研修パック", Price: 75000, Stock: 10, IsActive: true}, nil)
	m.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(1), int64(2)).
		Return(true, nil)
	m.promos.On("Resolve", mock.Anything, "LAUNCH10", int64(150000)).
		Return("promo-1", int64(15000), nil)
	m.counters.On("Next", mock.Anything, "order_number").Return(int64(42), nil)
	m.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Subtotal == 150000 &&
			o.Discount == 15000 &&
			o.Total == 135000 &&
			o.PaidAmount == 50000 &&
			o.RemainingDebt == 85000 &&
			o.Status == model.OrderStatusPendingPayment &&
			o.OrderNumber == "ORD-000042"
	})).Return(int64(10), nil)
	m.orderLines.On("CreateBulk", mock.Anything, int64(10), mock.Anything).Return(nil)
	m.debts.On("Create", mock.Anything, mock.MatchedBy(func(d model.Debt) bool {
		return d.OrderID == 10 &&
			d.TotalDebt == 85000 &&
			d.PaidAmount == 0 &&
			d.RemainingDebt == 85000
	})).Return(int64(7), nil)

	out, err := uc.PlaceOrder(ctx, 9, usecase.PlaceOrderInput{
		Lines:              []usecase.CheckoutLineInput{{ItemType: "PRODUCT", ItemID: 1, Quantity: 2}},
		Shipping:           validShipping(),
		PaymentMethod:      "PARTIAL",
		PaidAmount:         50000,
		PaymentEvidenceRef: "evidence/tf-001.jpg",
		PromoCode:          "LAUNCH10",
		IdempotencyKey:     "key-partial-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(135000), out.Total)
	assert.Equal(t, int64(50000), out.PaidAmount)
	assert.Equal(t, int64(85000), out.RemainingDebt)
	assert.Equal(t, out.Total, out.PaidAmount+out.RemainingDebt)
	assert.False(t, out.IsPaid)
	assert.Equal(t, "PENDING_PAYMENT", out.Status)
	if assert.NotNil(t, out.Debt) {
		assert.Equal(t, int64(85000), out.Debt.TotalDebt)
		assert.Equal(t, out.Debt.TotalDebt, out.Debt.PaidAmount+out.Debt.RemainingDebt)
	}
	m.orders.AssertExpectations(t)
	m.debts.AssertExpectations(t)
}

func TestPlaceOrder_FullOpensNoDebt(t *testing.T) {
	uc, m := newCheckoutUsecase()
	ctx := context.Background()

	m.orders.On("FindByIdempotencyKey", mock.Anything, int64(9), "key-full-1").
		Return(model.Order{}, false, nil)
	m.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "入門書", Price: 3000, Stock: 5, IsActive: true}, nil)
	m.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(1), int64(1)).
		Return(true, nil)
	m.counters.On("Next", mock.Anything, "order_number").Return(int64(1), nil)
	m.orders.On("Create", mock.Anything, mock.Anything).Return(int64(11), nil)
	m.orderLines.On("CreateBulk", mock.Anything, int64(11), mock.Anything).Return(nil)

	out, err := uc.PlaceOrder(ctx, 9, usecase.PlaceOrderInput{
		Lines:              []usecase.CheckoutLineInput{{ItemType: "PRODUCT", ItemID: 1, Quantity: 1}},
		Shipping:           validShipping(),
		PaymentMethod:      "FULL",
		PaymentEvidenceRef: "evidence/tf-002.jpg",
		IdempotencyKey:     "key-full-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(3000), out.Total)
	assert.Equal(t, int64(3000), out.PaidAmount)
	assert.Equal(t, int64(0), out.RemainingDebt)
	assert.True(t, out.IsPaid)
	assert.Nil(t, out.Debt)
	m.debts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceOrder_CreditOpensDebtForFullTotal(t *testing.T) {
	uc, m := newCheckoutUsecase()
	ctx := context.Background()

	m.orders.On("FindByIdempotencyKey", mock.Anything, int64(9), "key-credit-1").
		Return(model.Order{}, false, nil)
	m.products.On("FindByID", mock.Anything, int64(2)).
		Return(model.Product{ID: 2, Name: "実践書", Price: 20000, Stock: 3, IsActive: true}, nil)
	m.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(2), int64(1)).
		Return(true, nil)
	m.counters.On("Next", mock.Anything, "order_number").Return(int64(2), nil)
	m.orders.On("Create", mock.Anything, mock.Anything).Return(int64(12), nil)
	m.orderLines.On("CreateBulk", mock.Anything, int64(12), mock.Anything).Return(nil)
	m.debts.On("Create", mock.Anything, mock.MatchedBy(func(d model.Debt) bool {
		return d.TotalDebt == 20000 && d.RemainingDebt == 20000 && d.PaidAmount == 0
	})).Return(int64(8), nil)

	out, err := uc.PlaceOrder(ctx, 9, usecase.PlaceOrderInput{
		Lines:          []usecase.CheckoutLineInput{{ItemType: "PRODUCT", ItemID: 2, Quantity: 1}},
		Shipping:       validShipping(),
		PaymentMethod:  "CREDIT",
		IdempotencyKey: "key-credit-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(0), out.PaidAmount)
	assert.Equal(t, int64(20000), out.RemainingDebt)
	assert.False(t, out.IsPaid)
	m.debts.AssertExpectations(t)
}

func TestPlaceOrder_CreditRejectsPaymentFields(t *testing.T) {
	uc, _ := newCheckoutUsecase()

	_, err := uc.PlaceOrder(context.Background(), 9, usecase.PlaceOrderInput{
		Lines:              []usecase.CheckoutLineInput{{ItemType: "PRODUCT", ItemID: 1, Quantity: 1}},
		Shipping:           validShipping(),
		PaymentMethod:      "CREDIT",
		PaymentEvidenceRef: "evidence/x.jpg",
		IdempotencyKey:     "key-credit-bad",
	})

	assertErrContains(t, err, "credit order takes no payment fields")
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
}

func TestPlaceOrder_PartialPaidMustBeLessThanTotal(t *testing.T) {
	uc, m := newCheckoutUsecase()
	ctx := context.Background()

	m.orders.On("FindByIdempotencyKey", mock.Anything, int64(9), "key-partial-over").
		Return(model.Order{}, false, nil)
	m.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "入門書", Price: 3000, Stock: 5, IsActive: true}, nil)
	m.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(1), int64(1)).
		Return(true, nil)

	//合計3,000に対し3,000の前払いはPARTIALではない
	_, err := uc.PlaceOrder(ctx, 9, usecase.PlaceOrderInput{
		Lines:              []usecase.CheckoutLineInput{{ItemType: "PRODUCT", ItemID: 1, Quantity: 1}},
		Shipping:           validShipping(),
		PaymentMethod:      "PARTIAL",
		PaidAmount:         3000,
		PaymentEvidenceRef: "evidence/tf-003.jpg",
		IdempotencyKey:     "key-partial-over",
	})

	assertErrContains(t, err, "paid_amount must be positive and less than total")
	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceOrder_RequiresIdempotencyKey(t *testing.T) {
	uc, _ := newCheckoutUsecase()

	_, err := uc.PlaceOrder(context.Background(), 9, usecase.PlaceOrderInput{
		Lines:              []usecase.CheckoutLineInput{{ItemType: "PRODUCT", ItemID: 1, Quantity: 1}},
		Shipping:           validShipping(),
		PaymentMethod:      "FULL",
		PaymentEvidenceRef: "evidence/tf-004.jpg",
	})

	assertErrContains(t, err, "invalid idempotency_key")
}

func TestPlaceOrder_OutOfStockRollsBack(t *testing.T) {
	uc, m := newCheckoutUsecase()
	ctx := context.Background()

	m.orders.On("FindByIdempotencyKey", mock.Anything, int64(9), "key-oos").
		Return(model.Order{}, false, nil)
	m.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "入門書", Price: 3000, Stock: 0, IsActive: true}, nil)
	m.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(1), int64(2)).
		Return(false, nil)

	_, err := uc.PlaceOrder(ctx, 9, usecase.PlaceOrderInput{
		Lines:              []usecase.CheckoutLineInput{{ItemType: "PRODUCT", ItemID: 1, Quantity: 2}},
		Shipping:           validShipping(),
		PaymentMethod:      "FULL",
		PaymentEvidenceRef: "evidence/tf-005.jpg",
		IdempotencyKey:     "key-oos",
	})

	assertErrContains(t, err, "out of stock")
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 409, he.Status)
	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.counters.AssertNotCalled(t, "Next", mock.Anything, mock.Anything)
}

func TestPlaceOrder_BundleConsumesComponentStock(t *testing.T) {
	uc, m := newCheckoutUsecase()
	ctx := context.Background()

	//バンドル5 = {商品1×2, 商品2×1}、3セット注文 → 商品1を6、商品2を3引く
	m.orders.On("FindByIdempotencyKey", mock.Anything, int64(9), "key-bundle-1").
		Return(model.Order{}, false, nil)
	m.bundles.On("FindByID", mock.Anything, int64(5)).
		Return(model.Bundle{ID: 5, Name: "スターターセット", Price: 40000, IsActive: true}, nil)
	m.bundles.On("ListItems", mock.Anything, int64(5)).
		Return([]model.BundleItem{
			{BundleID: 5, ProductID: 1, Quantity: 2},
			{BundleID: 5, ProductID: 2, Quantity: 1},
		}, nil)
	m.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(1), int64(6)).Return(true, nil)
	m.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(2), int64(3)).Return(true, nil)
	m.counters.On("Next", mock.Anything, "order_number").Return(int64(3), nil)
	m.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Subtotal == 120000 && o.Total == 120000
	})).Return(int64(13), nil)
	m.orderLines.On("CreateBulk", mock.Anything, int64(13), mock.MatchedBy(func(lines []model.OrderLine) bool {
		return len(lines) == 1 &&
			lines[0].ItemType == model.LineItemBundle &&
			lines[0].UnitPriceSnapshot == 40000 &&
			lines[0].Quantity == 3
	})).Return(nil)

	out, err := uc.PlaceOrder(ctx, 9, usecase.PlaceOrderInput{
		Lines:              []usecase.CheckoutLineInput{{ItemType: "BUNDLE", ItemID: 5, Quantity: 3}},
		Shipping:           validShipping(),
		PaymentMethod:      "FULL",
		PaymentEvidenceRef: "evidence/tf-006.jpg",
		IdempotencyKey:     "key-bundle-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(120000), out.Total)
	m.inventory.AssertExpectations(t)
	m.orderLines.AssertExpectations(t)
}

func TestPlaceOrder_SameKeyReturnsExistingOrder(t *testing.T) {
	uc, m := newCheckoutUsecase()
	ctx := context.Background()

	existing := model.Order{
		ID:            10,
		OrderNumber:   "ORD-000042",
		UserID:        9,
		Subtotal:      150000,
		Discount:      15000,
		Total:         135000,
		PaymentMethod: model.PaymentMethodPartial,
		PaidAmount:    50000,
		RemainingDebt: 85000,
		Status:        model.OrderStatusPendingPayment,
	}
	m.orders.On("FindByIdempotencyKey", mock.Anything, int64(9), "key-partial-1").
		Return(existing, true, nil)
	m.orderLines.On("ListByOrderID", mock.Anything, int64(10)).
		Return([]model.OrderLine{}, nil)
	m.debts.On("FindByOrderID", mock.Anything, int64(10)).
		Return(model.Debt{ID: 7, OrderID: 10, TotalDebt: 85000, RemainingDebt: 85000}, nil)

	out, err := uc.PlaceOrder(ctx, 9, usecase.PlaceOrderInput{
		Lines:              []usecase.CheckoutLineInput{{ItemType: "PRODUCT", ItemID: 1, Quantity: 2}},
		Shipping:           validShipping(),
		PaymentMethod:      "PARTIAL",
		PaidAmount:         50000,
		PaymentEvidenceRef: "evidence/tf-001.jpg",
		IdempotencyKey:     "key-partial-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(10), out.ID)
	assert.Equal(t, "ORD-000042", out.OrderNumber)
	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.inventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_InvalidPromoRejected(t *testing.T) {
	uc, m := newCheckoutUsecase()
	ctx := context.Background()

	m.orders.On("FindByIdempotencyKey", mock.Anything, int64(9), "key-promo-bad").
		Return(model.Order{}, false, nil)
	m.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "入門書", Price: 3000, Stock: 5, IsActive: true}, nil)
	m.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(1), int64(1)).
		Return(true, nil)
	m.promos.On("Resolve", mock.Anything, "EXPIRED", int64(3000)).
		Return("", int64(0), gateway.ErrInvalidPromo)

	_, err := uc.PlaceOrder(ctx, 9, usecase.PlaceOrderInput{
		Lines:              []usecase.CheckoutLineInput{{ItemType: "PRODUCT", ItemID: 1, Quantity: 1}},
		Shipping:           validShipping(),
		PaymentMethod:      "FULL",
		PaymentEvidenceRef: "evidence/tf-007.jpg",
		PromoCode:          "EXPIRED",
		IdempotencyKey:     "key-promo-bad",
	})

	assertErrContains(t, err, "invalid promo code")
	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// 在庫1に対して同時注文2件 → 成功はちょうど1件、在庫は0で止まる
func TestPlaceOrder_ConcurrentIntakeSingleUnit(t *testing.T) {
	m := &checkoutMocks{
		tx:         &TxManagerMock{},
		orders:     &OrderRepoMock{},
		orderLines: &OrderLineRepoMock{},
		debts:      &DebtRepoMock{},
		products:   &ProductRepoMock{},
		bundles:    &BundleRepoMock{},
		counters:   &CounterRepoMock{},
		promos:     &PromoResolverMock{},
	}
	inv := newRaceInventoryMock(map[int64]int64{1: 1})
	m.tx.Repos = &TxReposMock{
		orders:     m.orders,
		orderLines: m.orderLines,
		debts:      m.debts,
		inventory:  inv,
		products:   m.products,
		bundles:    m.bundles,
		counters:   m.counters,
	}
	m.tx.On("WithinTx", mock.Anything).Return()
	m.orders.On("FindByIdempotencyKey", mock.Anything, mock.Anything, mock.Anything).
		Return(model.Order{}, false, nil)
	m.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "限定版", Price: 9000, Stock: 1, IsActive: true}, nil)
	m.counters.On("Next", mock.Anything, "order_number").Return(int64(1), nil)
	m.orders.On("Create", mock.Anything, mock.Anything).Return(int64(20), nil)
	m.orderLines.On("CreateBulk", mock.Anything, int64(20), mock.Anything).Return(nil)

	uc := usecase.NewCheckoutUsecase(m.tx, m.promos)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.PlaceOrder(ctx, int64(100+i), usecase.PlaceOrderInput{
				Lines:              []usecase.CheckoutLineInput{{ItemType: "PRODUCT", ItemID: 1, Quantity: 1}},
				Shipping:           validShipping(),
				PaymentMethod:      "FULL",
				PaymentEvidenceRef: "evidence/race.jpg",
				IdempotencyKey:     "key-race-" + string(rune('a'+i)),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, strings.Contains(err.Error(), "out of stock"), "unexpected err: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(0), inv.current(1))
}

func TestAttachPaymentEvidence_PendingOnly(t *testing.T) {
	uc, m := newCheckoutUsecase()
	ctx := context.Background()

	m.orders.On("FindByID", mock.Anything, int64(10)).
		Return(model.Order{ID: 10, UserID: 9, PaymentMethod: model.PaymentMethodFull, Status: model.OrderStatusProcessing}, nil)

	err := uc.AttachPaymentEvidence(ctx, 9, 10, "evidence/late.jpg")

	assertErrContains(t, err, "order is not awaiting payment")
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 409, he.Status)
	m.orders.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestAttachPaymentEvidence_MasksOtherUsersOrders(t *testing.T) {
	uc, m := newCheckoutUsecase()
	ctx := context.Background()

	m.orders.On("FindByID", mock.Anything, int64(10)).
		Return(model.Order{ID: 10, UserID: 8, PaymentMethod: model.PaymentMethodFull, Status: model.OrderStatusPendingPayment}, nil)

	err := uc.AttachPaymentEvidence(ctx, 9, 10, "evidence/x.jpg")

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
}

func TestAttachPaymentEvidence_CreditRejected(t *testing.T) {
	uc, m := newCheckoutUsecase()
	ctx := context.Background()

	m.orders.On("FindByID", mock.Anything, int64(10)).
		Return(model.Order{ID: 10, UserID: 9, PaymentMethod: model.PaymentMethodCredit, Status: model.OrderStatusPendingPayment}, nil)

	err := uc.AttachPaymentEvidence(ctx, 9, 10, "evidence/x.jpg")

	assertErrContains(t, err, "credit order takes no payment evidence")
}

func TestAttachPaymentEvidence_UpdatesRef(t *testing.T) {
	uc, m := newCheckoutUsecase()
	ctx := context.Background()

	m.orders.On("FindByID", mock.Anything, int64(10)).
		Return(model.Order{ID: 10, UserID: 9, PaymentMethod: model.PaymentMethodPartial, Status: model.OrderStatusPendingPayment}, nil)
	m.orders.On("UpdateFields", mock.Anything, int64(10), mock.MatchedBy(func(f map[string]interface{}) bool {
		return f["payment_evidence_ref"] == "evidence/tf-008.jpg"
	})).Return(nil)

	err := uc.AttachPaymentEvidence(ctx, 9, 10, "evidence/tf-008.jpg")

	assert.NoError(t, err)
	m.orders.AssertExpectations(t)
}

var _ repo.TransactionManager = (*TxManagerMock)(nil)
