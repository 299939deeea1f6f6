package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/RLokeshvarma/Smart-Bookmark/internal/middleware"
	"github.com/RLokeshvarma/Smart-Bookmark/internal/model"
)

// BookmarkServiceInterface はブックマークハンドラーが必要とするサービスインターフェース。
type BookmarkServiceInterface interface {
	// List はユーザーのブックマーク一覧を作成日時の降順で返す。
	List(ctx context.Context, userID, query string) ([]*model.Bookmark, error)
	// Create は検証済みのブックマークを作成する。
	Create(ctx context.Context, userID, title, url string) (*model.Bookmark, error)
	// Delete は所有者が一致する場合のみ削除する（冪等）。
	Delete(ctx context.Context, userID, bookmarkID string) (int64, error)
}

// ListLatencyRecorder は一覧取得のレイテンシ記録インターフェース。
type ListLatencyRecorder interface {
	RecordListLatency(duration time.Duration)
}

// BookmarkHandler はブックマーク管理のHTTPハンドラー。
type BookmarkHandler struct {
	service  BookmarkServiceInterface
	validate *validator.Validate
	metrics  ListLatencyRecorder
}

// NewBookmarkHandler はBookmarkHandlerを生成する。
// metricsはnilを許容する（テスト用）。
func NewBookmarkHandler(service BookmarkServiceInterface, metrics ListLatencyRecorder) *BookmarkHandler {
	return &BookmarkHandler{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  metrics,
	}
}

// bookmarkResponse はブックマークのAPIレスポンス。
type bookmarkResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// createBookmarkRequest はブックマーク作成リクエストのボディ。
type createBookmarkRequest struct {
	Title string `json:"title" validate:"required"`
	URL   string `json:"url" validate:"required,url"`
}

// ListBookmarks はユーザーのブックマーク一覧を取得する。
// GET /api/bookmarks?q=検索語
func (h *BookmarkHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	start := time.Now()
	bookmarks, err := h.service.List(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordListLatency(time.Since(start))
	}

	resp := make([]bookmarkResponse, 0, len(bookmarks))
	for _, b := range bookmarks {
		resp = append(resp, toBookmarkResponse(b))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CreateBookmark は新しいブックマークを作成する。
// POST /api/bookmarks
func (h *BookmarkHandler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	// 構造のバリデーション。内容の検証（サニタイズ等）はサービス層が行う。
	if err := h.validate.Struct(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(validationReason(err)))
		return
	}

	bookmark, err := h.service.Create(r.Context(), userID, req.Title, req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toBookmarkResponse(bookmark))
}

// DeleteBookmark はブックマークを削除する。
// DELETE /api/bookmarks/{id}
//
// 既に削除済みのIDや他ユーザー所有のIDに対しても204を返す（冪等）。
// UIは一覧の再取得で結果を確認する。
func (h *BookmarkHandler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	bookmarkID := chi.URLParam(r, "id")
	if _, err := h.service.Delete(r.Context(), userID, bookmarkID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toBookmarkResponse はmodel.BookmarkからAPIレスポンスに変換する。
func toBookmarkResponse(b *model.Bookmark) bookmarkResponse {
	return bookmarkResponse{
		ID:        b.ID,
		Title:     b.Title,
		URL:       b.URL,
		CreatedAt: b.CreatedAt,
	}
}

// validationReason はvalidatorのエラーからユーザー向けの理由文を組み立てる。
func validationReason(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "入力値が不正です"
	}

	fe := verrs[0]
	switch fe.Field() {
	case "Title":
		return "タイトルは必須です"
	case "URL":
		if fe.Tag() == "required" {
			return "URLは必須です"
		}
		return "URLの形式が不正です"
	default:
		return "入力値が不正です"
	}
}
