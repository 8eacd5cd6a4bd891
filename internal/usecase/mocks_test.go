package usecase_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders       repo.OrderRepository
	orderLines   repo.OrderLineRepository
	debts        repo.DebtRepository
	debtPayments repo.DebtPaymentRepository
	inventory    repo.InventoryRepository
	products     repo.ProductRepository
	bundles      repo.BundleRepository
	counters     repo.CounterRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository             { return r.orders }
func (r *TxReposMock) OrderLines() repo.OrderLineRepository     { return r.orderLines }
func (r *TxReposMock) Debts() repo.DebtRepository               { return r.debts }
func (r *TxReposMock) DebtPayments() repo.DebtPaymentRepository { return r.debtPayments }
func (r *TxReposMock) Inventory() repo.InventoryRepository      { return r.inventory }
func (r *TxReposMock) Products() repo.ProductRepository         { return r.products }
func (r *TxReposMock) Bundles() repo.BundleRepository           { return r.bundles }
func (r *TxReposMock) Counters() repo.CounterRepository         { return r.counters }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) UpdateFields(ctx context.Context, orderID int64, fields map[string]interface{}) error {
	args := m.Called(ctx, orderID, fields)
	return args.Error(0)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type OrderLineRepoMock struct{ mock.Mock }

func (m *OrderLineRepoMock) CreateBulk(ctx context.Context, orderID int64, lines []model.OrderLine) error {
	args := m.Called(ctx, orderID, lines)
	return args.Error(0)
}

func (m *OrderLineRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderLine, error) {
	args := m.Called(ctx, orderID)
	lines, _ := args.Get(0).([]model.OrderLine)
	return lines, args.Error(1)
}

type DebtRepoMock struct{ mock.Mock }

func (m *DebtRepoMock) FindByID(ctx context.Context, debtID int64) (model.Debt, error) {
	args := m.Called(ctx, debtID)
	d, _ := args.Get(0).(model.Debt)
	return d, args.Error(1)
}

func (m *DebtRepoMock) FindByOrderID(ctx context.Context, orderID int64) (model.Debt, error) {
	args := m.Called(ctx, orderID)
	d, _ := args.Get(0).(model.Debt)
	return d, args.Error(1)
}

func (m *DebtRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Debt, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	debts, _ := args.Get(0).([]model.Debt)
	return debts, args.Get(1).(int64), args.Error(2)
}

func (m *DebtRepoMock) Create(ctx context.Context, debt model.Debt) (int64, error) {
	args := m.Called(ctx, debt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *DebtRepoMock) ApplyPayment(ctx context.Context, debtID int64, amount int64) error {
	args := m.Called(ctx, debtID, amount)
	return args.Error(0)
}

func (m *DebtRepoMock) DeleteIfUnpaid(ctx context.Context, debtID int64) (bool, error) {
	args := m.Called(ctx, debtID)
	return args.Bool(0), args.Error(1)
}

func (m *DebtRepoMock) ListAdmin(ctx context.Context, f repo.AdminDebtListFilter) ([]model.Debt, int64, error) {
	args := m.Called(ctx, f)
	debts, _ := args.Get(0).([]model.Debt)
	return debts, args.Get(1).(int64), args.Error(2)
}

type DebtPaymentRepoMock struct{ mock.Mock }

func (m *DebtPaymentRepoMock) Create(ctx context.Context, payment model.DebtPayment) (int64, error) {
	args := m.Called(ctx, payment)
	return args.Get(0).(int64), args.Error(1)
}

func (m *DebtPaymentRepoMock) ListByDebtID(ctx context.Context, debtID int64) ([]model.DebtPayment, error) {
	args := m.Called(ctx, debtID)
	payments, _ := args.Get(0).([]model.DebtPayment)
	return payments, args.Error(1)
}

type InventoryRepoMock struct{ mock.Mock }

func (m *InventoryRepoMock) SetStock(ctx context.Context, productID int64, newStock int64) error {
	args := m.Called(ctx, productID, newStock)
	return args.Error(0)
}

func (m *InventoryRepoMock) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *InventoryRepoMock) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

func (m *InventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	args := m.Called(ctx, adjustment)
	return args.Error(0)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByID(ctx context.Context, productID int64) (model.Product, error) {
	args := m.Called(ctx, productID)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

type BundleRepoMock struct{ mock.Mock }

func (m *BundleRepoMock) FindByID(ctx context.Context, bundleID int64) (model.Bundle, error) {
	args := m.Called(ctx, bundleID)
	b, _ := args.Get(0).(model.Bundle)
	return b, args.Error(1)
}

func (m *BundleRepoMock) ListItems(ctx context.Context, bundleID int64) ([]model.BundleItem, error) {
	args := m.Called(ctx, bundleID)
	items, _ := args.Get(0).([]model.BundleItem)
	return items, args.Error(1)
}

type CounterRepoMock struct{ mock.Mock }

func (m *CounterRepoMock) Next(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	panic("not used in these tests")
}

type PromoResolverMock struct{ mock.Mock }

func (m *PromoResolverMock) Resolve(ctx context.Context, code string, subtotal int64) (string, int64, error) {
	args := m.Called(ctx, code, subtotal)
	return args.String(0), args.Get(1).(int64), args.Error(2)
}

// =====================
// 在庫の競合テスト用（本物の条件付き減算と同じ意味論をメモリ上で再現）
// =====================

type raceInventoryMock struct {
	mu    sync.Mutex
	stock map[int64]int64
}

func newRaceInventoryMock(stock map[int64]int64) *raceInventoryMock {
	return &raceInventoryMock{stock: stock}
}

func (m *raceInventoryMock) SetStock(ctx context.Context, productID int64, newStock int64) error {
	panic("not used in race tests")
}

func (m *raceInventoryMock) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stock[productID] < qty {
		return false, nil
	}
	m.stock[productID] -= qty
	return true, nil
}

func (m *raceInventoryMock) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID] += qty
	return nil
}

func (m *raceInventoryMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	panic("not used in race tests")
}

func (m *raceInventoryMock) current(productID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[productID]
}

// =====================
// Helper: error contains（HTTPErrorの実装詳細に依存しない）
// =====================

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}
