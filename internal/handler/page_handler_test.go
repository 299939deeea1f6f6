package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/RLokeshvarma/Smart-Bookmark/internal/model"
)

// --- モック定義 ---

type mockPageSessionService struct {
	getCurrentSessionFunc func(ctx context.Context, sessionID string) (*model.Session, error)
	getCurrentUserFunc    func(ctx context.Context, sessionID string) (*model.User, error)
}

var _ PageSessionService = (*mockPageSessionService)(nil)

func (m *mockPageSessionService) GetCurrentSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if m.getCurrentSessionFunc != nil {
		return m.getCurrentSessionFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockPageSessionService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFunc != nil {
		return m.getCurrentUserFunc(ctx, sessionID)
	}
	return nil, nil
}

func validSessionService() *mockPageSessionService {
	return &mockPageSessionService{
		getCurrentSessionFunc: func(ctx context.Context, sessionID string) (*model.Session, error) {
			if sessionID == "valid-session" {
				return &model.Session{ID: sessionID, UserID: "user-1"}, nil
			}
			return nil, nil
		},
		getCurrentUserFunc: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID == "valid-session" {
				return &model.User{ID: "user-1", Name: "Taro", Email: "taro@example.com"}, nil
			}
			return nil, nil
		},
	}
}

func testPageConfig() PageHandlerConfig {
	return PageHandlerConfig{PollInterval: 2 * time.Second}
}

// --- テスト ---

func TestHome_NotLoggedIn_RendersLanding(t *testing.T) {
	h := NewPageHandler(validSessionService(), testPageConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	h.Home(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "/auth/google/login") {
		t.Error("landing page should contain login link")
	}
}

func TestHome_LoggedIn_RedirectsToDashboard(t *testing.T) {
	h := NewPageHandler(validSessionService(), testPageConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	h.Home(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if location := resp.Header.Get("Location"); location != "/dashboard" {
		t.Errorf("Location = %q, want /dashboard", location)
	}
}

func TestHome_ExpiredSession_RendersLanding(t *testing.T) {
	h := NewPageHandler(validSessionService(), testPageConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired-session"})
	w := httptest.NewRecorder()

	h.Home(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestDashboard_LoggedIn_RendersPage(t *testing.T) {
	h := NewPageHandler(validSessionService(), testPageConfig())

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	w := httptest.NewRecorder()

	h.Dashboard(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body := w.Body.String()
	if !strings.Contains(body, "taro@example.com") {
		t.Error("dashboard should contain user email")
	}
	// ポーリング間隔がテンプレートに埋め込まれていること
	if !strings.Contains(body, "2000") {
		t.Error("dashboard should contain poll interval in milliseconds")
	}
}

func TestDashboard_NotLoggedIn_RedirectsToLanding(t *testing.T) {
	h := NewPageHandler(validSessionService(), testPageConfig())

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	w := httptest.NewRecorder()

	h.Dashboard(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if location := resp.Header.Get("Location"); location != "/" {
		t.Errorf("Location = %q, want /", location)
	}
}

func TestDashboard_ExpiredSession_RedirectsToLanding(t *testing.T) {
	h := NewPageHandler(validSessionService(), testPageConfig())

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired-session"})
	w := httptest.NewRecorder()

	h.Dashboard(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if location := resp.Header.Get("Location"); location != "/" {
		t.Errorf("Location = %q, want /", location)
	}
}
