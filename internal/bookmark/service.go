// Package bookmark はブックマーク管理のドメインロジックを提供する。
package bookmark

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/RLokeshvarma/Smart-Bookmark/internal/model"
	"github.com/RLokeshvarma/Smart-Bookmark/internal/repository"
)

// MetricsRecorder はブックマーク操作のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordBookmarkCreated()
	RecordBookmarkDeleted()
}

// Service はブックマーク管理のサービス層。
// すべての操作は認証済みユーザーのIDで制約される。所有者の強制は
// ストレージ層のクエリ条件が唯一の拠り所であり、本層のタイトル検索は
// その上に重ねるUX上の補助フィルタにすぎない。
type Service struct {
	repo      repository.BookmarkRepository
	sanitizer *bluemonday.Policy
	metrics   MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する（テスト用）。
func NewService(repo repository.BookmarkRepository, metrics MetricsRecorder) *Service {
	return &Service{
		repo:      repo,
		sanitizer: bluemonday.StrictPolicy(),
		metrics:   metrics,
	}
}

// List は指定ユーザーのブックマーク一覧を作成日時の降順で返す。
// queryが空でない場合、タイトルの部分一致（大文字小文字を区別しない）で絞り込む。
func (s *Service) List(ctx context.Context, userID, query string) ([]*model.Bookmark, error) {
	bookmarks, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の取得に失敗しました: %w", err)
	}

	if query == "" {
		return bookmarks, nil
	}

	q := strings.ToLower(query)
	filtered := make([]*model.Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		if strings.Contains(strings.ToLower(b.Title), q) {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// Create は新しいブックマークを作成して返す。
// タイトルとURLの検証はストレージ層を呼ぶ前にローカルで行い、
// 不正な入力でレコードが作られることはない。
func (s *Service) Create(ctx context.Context, userID, title, rawURL string) (*model.Bookmark, error) {
	title = strings.TrimSpace(s.sanitizer.Sanitize(title))
	rawURL = strings.TrimSpace(rawURL)

	if title == "" {
		return nil, model.NewValidationError("タイトルは必須です")
	}
	if rawURL == "" {
		return nil, model.NewValidationError("URLは必須です")
	}
	if err := validateURL(rawURL); err != nil {
		return nil, model.NewValidationError(err.Error())
	}

	b := &model.Bookmark{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		URL:       rawURL,
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("ブックマークの作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordBookmarkCreated()
	}

	return b, nil
}

// Delete は所有者が一致する場合のみブックマークを削除する。
// 他ユーザー所有のレコードや既に削除済みのIDに対しては0件の削除となり、
// エラーにはならない（冪等）。呼び出し側は戻り値の件数で結果を判断する。
func (s *Service) Delete(ctx context.Context, userID, bookmarkID string) (int64, error) {
	affected, err := s.repo.Delete(ctx, bookmarkID, userID)
	if err != nil {
		return 0, fmt.Errorf("ブックマークの削除に失敗しました: %w", err)
	}

	if affected == 0 {
		slog.Info("bookmark delete affected no rows",
			slog.String("bookmark_id", bookmarkID),
			slog.String("user_id", userID),
		)
		return 0, nil
	}

	if s.metrics != nil {
		s.metrics.RecordBookmarkDeleted()
	}

	return affected, nil
}

// validateURL はブックマークURLの形式を検証する。
// http/httpsスキームとホストの存在のみを要求する。到達性の確認は行わない。
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URLの形式が不正です")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URLはhttp://またはhttps://で始まる必要があります")
	}
	if u.Host == "" {
		return fmt.Errorf("URLにホスト名が含まれていません")
	}
	return nil
}
