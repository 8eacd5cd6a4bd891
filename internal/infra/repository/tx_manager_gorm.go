package repository

import (
	"context"

	repo "app/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders       repo.OrderRepository
	orderLines   repo.OrderLineRepository
	debts        repo.DebtRepository
	debtPayments repo.DebtPaymentRepository
	inventory    repo.InventoryRepository
	products     repo.ProductRepository
	bundles      repo.BundleRepository
	counters     repo.CounterRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository             { return r.orders }
func (r *txReposGorm) OrderLines() repo.OrderLineRepository     { return r.orderLines }
func (r *txReposGorm) Debts() repo.DebtRepository               { return r.debts }
func (r *txReposGorm) DebtPayments() repo.DebtPaymentRepository { return r.debtPayments }
func (r *txReposGorm) Inventory() repo.InventoryRepository      { return r.inventory }
func (r *txReposGorm) Products() repo.ProductRepository         { return r.products }
func (r *txReposGorm) Bundles() repo.BundleRepository           { return r.bundles }
func (r *txReposGorm) Counters() repo.CounterRepository         { return r.counters }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:       NewOrderGormRepository(tx),
			orderLines:   NewOrderLineGormRepository(tx),
			debts:        NewDebtGormRepository(tx),
			debtPayments: NewDebtPaymentGormRepository(tx),
			inventory:    NewInventoryGormRepository(tx),
			products:     NewProductGormRepository(tx),
			bundles:      NewBundleGormRepository(tx),
			counters:     NewCounterGormRepository(tx),
		}
		return fn(r)
	})
}
