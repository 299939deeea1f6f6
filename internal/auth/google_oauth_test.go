package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// buildTestIDToken はテスト用のid_token（署名はダミー）を組み立てる。
// userInfoFromIDTokenは署名検証を行わないため、クレーム部のみ意味を持つ。
func buildTestIDToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("failed to marshal claims: %v", err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	signature := base64.RawURLEncoding.EncodeToString([]byte("sig"))

	return header + "." + body + "." + signature
}

func TestGetLoginURL_ContainsRequiredParams(t *testing.T) {
	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "client-id",
		RedirectURL: "http://localhost:8080/auth/google/callback",
	})

	url := p.GetLoginURL("state-123")

	for _, want := range []string{
		"client_id=client-id",
		"response_type=code",
		"state=state-123",
		"access_type=offline",
		"scope=openid+email+profile",
	} {
		if !strings.Contains(url, want) {
			t.Errorf("login URL missing %q: %s", want, url)
		}
	}
}

// id_tokenのクレームからユーザー情報が取れ、userinfoエンドポイントが
// 呼ばれないことを検証
func TestExchangeCode_UsesIDTokenClaims(t *testing.T) {
	userInfoCalled := false

	var tokenServer *httptest.Server
	tokenServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "authorization_code" {
			t.Errorf("grant_type = %q, want authorization_code", r.Form.Get("grant_type"))
		}
		if r.Form.Get("code") != "valid-code" {
			t.Errorf("code = %q, want valid-code", r.Form.Get("code"))
		}

		idToken := buildTestIDToken(t, map[string]interface{}{
			"iss":   "https://accounts.google.com",
			"aud":   "client-id",
			"sub":   "google-sub-1",
			"email": "user@example.com",
			"name":  "Test User",
			"exp":   time.Now().Add(1 * time.Hour).Unix(),
		})

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"access_token": "access-1",
			"refresh_token": "refresh-1",
			"expires_in": 3600,
			"id_token": %q
		}`, idToken)
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userInfoCalled = true
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"sub":"google-sub-1","email":"user@example.com","name":"Test User"}`)
	}))
	defer userInfoServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "client-id",
		TokenURL:    tokenServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	token, userInfo, err := p.ExchangeCode(context.Background(), "valid-code")
	if err != nil {
		t.Fatalf("ExchangeCode returned error: %v", err)
	}

	if token.AccessToken != "access-1" || token.RefreshToken != "refresh-1" {
		t.Errorf("unexpected token: %+v", token)
	}
	if token.ExpiresAt.IsZero() {
		t.Error("token expiry should be set from expires_in")
	}
	if userInfo.ProviderUserID != "google-sub-1" {
		t.Errorf("ProviderUserID = %q, want google-sub-1", userInfo.ProviderUserID)
	}
	if userInfo.Email != "user@example.com" || userInfo.Name != "Test User" {
		t.Errorf("unexpected user info: %+v", userInfo)
	}
	if userInfoCalled {
		t.Error("userinfo endpoint should not be called when id_token is present")
	}
}

// id_tokenが無い場合にuserinfoエンドポイントへフォールバックすることを検証
func TestExchangeCode_FallsBackToUserInfoEndpoint(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"access-1","refresh_token":"refresh-1","expires_in":3600}`)
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-1" {
			t.Errorf("Authorization = %q, want Bearer access-1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"sub":"google-sub-2","email":"fallback@example.com","name":"Fallback"}`)
	}))
	defer userInfoServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "client-id",
		TokenURL:    tokenServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	_, userInfo, err := p.ExchangeCode(context.Background(), "valid-code")
	if err != nil {
		t.Fatalf("ExchangeCode returned error: %v", err)
	}
	if userInfo.ProviderUserID != "google-sub-2" {
		t.Errorf("ProviderUserID = %q, want google-sub-2", userInfo.ProviderUserID)
	}
}

// audienceが一致しないid_tokenは使用されないことを検証
func TestExchangeCode_RejectsForeignAudienceIDToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idToken := buildTestIDToken(t, map[string]interface{}{
			"iss": "https://accounts.google.com",
			"aud": "some-other-client",
			"sub": "google-sub-1",
		})
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"access-1","expires_in":3600,"id_token":%q}`, idToken)
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"sub":"google-sub-1","email":"user@example.com"}`)
	}))
	defer userInfoServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "client-id",
		TokenURL:    tokenServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	// 不正なaudienceのid_tokenは無視され、userinfoフォールバックで成功する
	_, userInfo, err := p.ExchangeCode(context.Background(), "valid-code")
	if err != nil {
		t.Fatalf("ExchangeCode returned error: %v", err)
	}
	if userInfo.ProviderUserID != "google-sub-1" {
		t.Errorf("ProviderUserID = %q, want google-sub-1", userInfo.ProviderUserID)
	}
}

// トークンエンドポイントのエラーがExchangeCodeの失敗になることを検証
func TestExchangeCode_TokenEndpointError_Fails(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	defer tokenServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID: "client-id",
		TokenURL: tokenServer.URL,
	})

	if _, _, err := p.ExchangeCode(context.Background(), "expired-code"); err == nil {
		t.Fatal("ExchangeCode should fail on token endpoint error")
	}
}

// リフレッシュグラントで新しいアクセストークンが取得でき、
// refresh_tokenが引き継がれることを検証
func TestRefreshToken_KeepsOriginalRefreshToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", r.Form.Get("grant_type"))
		}
		// Googleはリフレッシュ時に新しいrefresh_tokenを返さない
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh-access","expires_in":3600}`)
	}))
	defer tokenServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID: "client-id",
		TokenURL: tokenServer.URL,
	})

	token, err := p.RefreshToken(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("RefreshToken returned error: %v", err)
	}
	if token.AccessToken != "fresh-access" {
		t.Errorf("AccessToken = %q, want fresh-access", token.AccessToken)
	}
	if token.RefreshToken != "refresh-1" {
		t.Errorf("RefreshToken = %q, want refresh-1 (carried over)", token.RefreshToken)
	}
}

// 失効エンドポイントの呼び出しを検証
func TestRevokeToken_PostsToRevokeEndpoint(t *testing.T) {
	var revokedToken string
	revokeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		revokedToken = r.Form.Get("token")
		w.WriteHeader(http.StatusOK)
	}))
	defer revokeServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:  "client-id",
		RevokeURL: revokeServer.URL,
	})

	if err := p.RevokeToken(context.Background(), "refresh-1"); err != nil {
		t.Fatalf("RevokeToken returned error: %v", err)
	}
	if revokedToken != "refresh-1" {
		t.Errorf("revoked token = %q, want refresh-1", revokedToken)
	}
}
