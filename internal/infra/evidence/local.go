package evidence

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ローカルディスクに保存する証憑ストア。
// 返す参照は保存ディレクトリからの相対パス（コアはこの文字列を保持するだけ）。
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Save(ctx context.Context, filename string, data []byte) (string, error) {
	//ファイル名は衝突しないよう採番し直す（元の拡張子だけ残す）
	ref := uuid.NewString() + filepath.Ext(filename)

	path := filepath.Join(s.dir, ref)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return ref, nil
}
