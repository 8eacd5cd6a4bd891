package main

import (
	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	"app/internal/infra/evidence"
	"app/internal/infra/promo"
	infraRepo "app/internal/infra/repository"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/joho/godotenv"
)

func main() {
	//.envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		panic(err)
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.Bundle{},
		&model.BundleItem{},
		&model.Order{},
		&model.OrderLine{},
		&model.Debt{},
		&model.DebtPayment{},
		&model.Counter{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
		&promo.Promo{},
	); err != nil {
		panic(err)
	}

	//Repository（GORM実装）生成
	txManager := infraRepo.NewTxManagerGorm(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)

	//外部コラボレーター
	evidenceStore, err := evidence.NewLocalStore(cfg.EvidenceDir)
	if err != nil {
		panic(err)
	}
	promoResolver := promo.NewGormResolver(gormDB)

	//Usecase生成
	checkoutUC := usecase.NewCheckoutUsecase(txManager, promoResolver)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, auditRepo)
	debtUC := usecase.NewDebtUsecase(txManager, auditRepo)
	stockUC := usecase.NewAdminStockUsecase(txManager, auditRepo)

	//Handler生成
	orderH := handler.NewOrderHandler(checkoutUC, evidenceStore)
	debtH := handler.NewDebtHandler(debtUC)
	adminOrderH := handler.NewAdminOrderHandler(adminOrderUC)
	adminDebtH := handler.NewAdminDebtHandler(debtUC)
	adminStockH := handler.NewAdminStockHandler(stockUC)

	//Server起動
	e := server.New(cfg, orderH, debtH, adminOrderH, adminDebtH, adminStockH)

	addr := ":" + cfg.Port
	if cfg.Port[0] == ':' {
		addr = cfg.Port
	}

	if err := e.Start(addr); err != nil {
		panic(err)
	}
}
