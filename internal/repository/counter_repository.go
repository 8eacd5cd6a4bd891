package repository

import "context"

// 採番。同一トランザクション内で呼ぶこと。
type CounterRepository interface {
	//nameのカウンターをアトミックに+1して新しい値を返す
	Next(ctx context.Context, name string) (int64, error)
}
