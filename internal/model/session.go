package model

import "time"

// Session はユーザーのログインセッションを表す。
// IDはCookieに格納される不透明なランダム値。
// IdPが発行したアクセストークン・リフレッシュトークンはサーバー側にのみ保持する。
type Session struct {
	ID             string
	UserID         string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt time.Time
	ExpiresAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsExpired はセッション自体の有効期限が切れているかを返す。
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// NeedsTokenRefresh はアクセストークンの更新が必要かを返す。
// skewは有効期限前に先回りして更新するためのマージン。
func (s *Session) NeedsTokenRefresh(now time.Time, skew time.Duration) bool {
	if s.TokenExpiresAt.IsZero() {
		return false
	}
	return !s.TokenExpiresAt.After(now.Add(skew))
}
