package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	OrderLines() OrderLineRepository
	Debts() DebtRepository
	DebtPayments() DebtPaymentRepository
	Inventory() InventoryRepository
	Products() ProductRepository
	Bundles() BundleRepository
	Counters() CounterRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// 各操作（注文確定・承認・出荷・入金記録）は必ず1つのWithinTxで完結させる。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
