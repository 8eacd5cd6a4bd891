package gateway

import (
	"context"
	"errors"
)

// 無効・期限切れ・条件未達のプロモコード
var ErrInvalidPromo = errors.New("invalid promo code")

// 証憑ストアの約束。中身は見ず、表示用の参照だけを預かる。
type EvidenceStore interface {
	//blobを保存して安定した参照（パスやURL）を返す
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

// プロモ解決の約束。コードの妥当性判断は外側の責務で、
// コアは返ってきた割引額をそのまま信用する。
type PromoResolver interface {
	//割引額とプロモ識別子を返す。無効なコードはエラー。
	Resolve(ctx context.Context, code string, subtotal int64) (promoID string, discount int64, err error)
}
