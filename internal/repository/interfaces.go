// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/RLokeshvarma/Smart-Bookmark/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// UpdateTokens はトークン更新後のセッションを永続化する。
	// access_token、refresh_token、token_expires_at、updated_atを更新する。
	UpdateTokens(ctx context.Context, session *model.Session) error
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// BookmarkRepository はブックマークデータの永続化インターフェース。
// すべての読み書きは所有者のユーザーIDで制約される。
// この制約がデータ分離の唯一の拠り所であり、上位層のフィルタは補助にすぎない。
type BookmarkRepository interface {
	// ListByUserID は指定ユーザーのブックマーク一覧を作成日時の降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Bookmark, error)

	// Create はブックマークを作成する。
	Create(ctx context.Context, bookmark *model.Bookmark) error

	// Delete は所有者が一致する場合のみブックマークを削除し、削除件数を返す。
	// 他ユーザー所有のレコードや存在しないIDに対しては0件（エラーなし）。
	Delete(ctx context.Context, id, userID string) (int64, error)
}
