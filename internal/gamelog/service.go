// Package gamelog はワールドDBのゲームログ参照を提供する。
package gamelog

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/nestadmin/internal/model"
	"github.com/hitoshi/nestadmin/internal/pagination"
	"github.com/hitoshi/nestadmin/internal/repository"
)

// typeAll はログ種別を絞り込まないことを表すフィルタ値。
const typeAll = "All"

// Service はゲームログ参照のサービス層。
type Service struct {
	repo repository.LogRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.LogRepository) *Service {
	return &Service{repo: repo}
}

// List はログ種別で絞り込んだログを新しい順に返す。
// logTypeが空または"All"の場合は全種別を対象とする。未知の種別は完全一致で検索する。
// 本文とキャラクター名はゲームサーバーが書き込んだ値をそのまま返す。
func (s *Service) List(ctx context.Context, logType string, p pagination.Params) (*model.LogPage, error) {
	logType = strings.TrimSpace(logType)
	if logType == typeAll {
		logType = ""
	}

	logs, err := s.repo.List(ctx, logType, p.Limit, p.Offset())
	if err != nil {
		return nil, fmt.Errorf("ゲームログの取得に失敗しました: %w", err)
	}

	return &model.LogPage{
		Data:  logs,
		Page:  p.Page,
		Limit: p.Limit,
	}, nil
}
