package server

import (
	"app/internal/config"
	"app/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// New はechoを組み立ててルートを登録する。起動はmain側。
func New(
	cfg config.Config,
	orderH *handler.OrderHandler,
	debtH *handler.DebtHandler,
	adminOrderH *handler.AdminOrderHandler,
	adminDebtH *handler.AdminDebtHandler,
	adminStockH *handler.AdminStockHandler,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	orderH.RegisterRoutes(e, cfg)
	debtH.RegisterRoutes(e, cfg)
	adminOrderH.RegisterRoutes(e, cfg)
	adminDebtH.RegisterRoutes(e, cfg)
	adminStockH.RegisterRoutes(e, cfg)

	return e
}
