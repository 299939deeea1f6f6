// Package auth はOAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/RLokeshvarma/Smart-Bookmark/internal/model"
	"github.com/RLokeshvarma/Smart-Bookmark/internal/repository"
)

// OAuthToken はOAuthプロバイダーが発行したトークンの組を表す。
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string // "google", "github" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、トークンとユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthToken, *OAuthUserInfo, error)
	// RefreshToken はリフレッシュトークンで新しいアクセストークンを取得する。
	RefreshToken(ctx context.Context, refreshToken string) (*OAuthToken, error)
	// RevokeToken はIdP側でトークンを失効させる。
	RevokeToken(ctx context.Context, token string) error
}

// MetricsRecorder は認証イベントのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordLogin()
	RecordLoginFailure()
	RecordSessionRefresh()
	RecordSessionRefreshFailure()
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge    int           // セッション有効期間（秒）
	TokenRefreshSkew time.Duration // アクセストークン更新を先行させるマージン
}

// Service は認証に関するビジネスロジックを提供する。
// セッションの取得は常にここを経由し、期限切れトークンを持つセッションが
// 呼び出し元に渡ることはない。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	notifier    *SessionEndedNotifier
	metrics     MetricsRecorder
	config      ServiceConfig
}

// NewService はServiceを生成する。
// notifierとmetricsはnilを許容する（テスト用）。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	notifier *SessionEndedNotifier,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	if config.TokenRefreshSkew <= 0 {
		config.TokenRefreshSkew = 30 * time.Second
	}
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		notifier:    notifier,
		metrics:     metrics,
		config:      config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// OnSessionEnded はセッション終了通知を購読する。
// 返却される関数で購読を解除できる。解除は購読側のライフタイムに合わせて
// 必ず呼び出すこと。
func (s *Service) OnSessionEnded(fn func(sessionID string)) (unsubscribe func()) {
	if s.notifier == nil {
		return func() {}
	}
	return s.notifier.Subscribe(fn)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に自動作成する。
// 登録済みユーザーの場合はidentitiesテーブルで既存ユーザーを特定しログインする。
// 交換に失敗した場合は一切の状態を残さない（フェイルクローズ）。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	token, userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLoginFailure()
		}
		slog.Warn("oauth code exchange failed", slog.String("error", err.Error()))
		return nil, model.NewAuthExchangeError()
	}

	// 2. identitiesテーブルで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var userID string

	if identity != nil {
		// 3a. 既存ユーザー: identityからユーザーIDを取得
		userID = identity.UserID
		slog.Info("existing user logged in",
			slog.String("user_id", userID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		// 3b. 新規ユーザー: usersレコードとidentitiesレコードを同時に作成
		newUserID := uuid.New().String()
		newIdentityID := uuid.New().String()
		now := time.Now()

		newUser := &model.User{
			ID:        newUserID,
			Email:     userInfo.Email,
			Name:      userInfo.Name,
			CreatedAt: now,
			UpdatedAt: now,
		}

		newIdentity := &model.Identity{
			ID:             newIdentityID,
			UserID:         newUserID,
			Provider:       userInfo.Provider,
			ProviderUserID: userInfo.ProviderUserID,
			CreatedAt:      now,
		}

		if err := s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity); err != nil {
			return nil, fmt.Errorf("failed to create user and identity: %w", err)
		}

		userID = newUserID
		slog.Info("new user created",
			slog.String("user_id", userID),
			slog.String("email", userInfo.Email),
			slog.String("provider", userInfo.Provider),
		)
	}

	// 4. セッションを発行
	session, err := s.createSession(ctx, userID, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordLogin()
	}

	return session, nil
}

// GetCurrentSession はセッションIDから有効なセッションを取得する。
// セッションが存在しない、または期限切れの場合は(nil, nil)を返す。
// アクセストークンが期限切れ間近の場合はIdPに対して透過的に更新を行う。
// 更新不能なセッションは破棄され、(nil, nil)が返る。
// 期限切れかつ更新不能と判明したセッションが返ることはない。
func (s *Service) GetCurrentSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	// 期限切れセッションは未認証と同一に扱う
	if session == nil || session.IsExpired(time.Now()) {
		return nil, nil
	}

	if !session.NeedsTokenRefresh(time.Now(), s.config.TokenRefreshSkew) {
		return session, nil
	}

	return s.refreshSession(ctx, session)
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// 有効なセッションが存在しない場合は(nil, nil)を返す。
// セッションに対応するユーザー行が存在しない場合は、そのユーザーの
// 全セッションを失効させたうえでエラーを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	session, err := s.GetCurrentSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// 有効なセッションが残っているのにユーザー行が存在しない。
		// 削除済みユーザーの残存セッションなので、全セッションを失効させる。
		slog.Warn("user row missing for valid session, revoking all sessions",
			slog.String("user_id", session.UserID),
		)
		if err := s.sessionRepo.DeleteByUserID(ctx, session.UserID); err != nil {
			slog.Error("failed to revoke sessions for missing user",
				slog.String("user_id", session.UserID),
				slog.String("error", err.Error()),
			)
		} else {
			s.notifySessionEnded(session.ID)
		}
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}

// SignOut はセッションを破棄する。
// IdP側のトークン失効はベストエフォートで行い、失敗してもローカルの
// セッション破棄は続行する（ローカル破棄でクライアント能力は失われるため）。
// セッション終了通知は破棄が成功した場合に1回だけ発火する。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		// 既にサインアウト済み。通知は発火しない。
		return nil
	}

	if session.RefreshToken != "" {
		if err := s.oauth.RevokeToken(ctx, session.RefreshToken); err != nil {
			slog.Warn("provider token revocation failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.notifySessionEnded(sessionID)
	slog.Info("user signed out", slog.String("session_id", sessionID))
	return nil
}

// refreshSession はアクセストークンを更新し、更新後のセッションを返す。
// リフレッシュトークンが無い、または更新が拒否された場合はセッションを
// 破棄して(nil, nil)を返す（未認証と同一に扱う）。
func (s *Service) refreshSession(ctx context.Context, session *model.Session) (*model.Session, error) {
	if session.RefreshToken == "" {
		slog.Info("session has no refresh token, ending session",
			slog.String("session_id", session.ID),
		)
		return nil, s.endSession(ctx, session.ID)
	}

	token, err := s.oauth.RefreshToken(ctx, session.RefreshToken)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSessionRefreshFailure()
		}
		slog.Warn("token refresh failed, ending session",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
		return nil, s.endSession(ctx, session.ID)
	}

	session.AccessToken = token.AccessToken
	session.RefreshToken = token.RefreshToken
	session.TokenExpiresAt = token.ExpiresAt
	session.UpdatedAt = time.Now()

	if err := s.sessionRepo.UpdateTokens(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSessionRefresh()
	}

	return session, nil
}

// endSession はセッションを破棄し、終了通知を発火する。
func (s *Service) endSession(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.notifySessionEnded(sessionID)
	return nil
}

// notifySessionEnded はセッション終了通知を発火する。
func (s *Service) notifySessionEnded(sessionID string) {
	if s.notifier != nil {
		s.notifier.Notify(sessionID)
	}
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string, token *OAuthToken) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:             sessionID,
		UserID:         userID,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: token.ExpiresAt,
		ExpiresAt:      now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
