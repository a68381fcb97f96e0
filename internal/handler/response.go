// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/nestadmin/internal/middleware"
	"github.com/hitoshi/nestadmin/internal/model"
)

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層のエラーを統一エラーフォーマットに変換する。
// DB障害は500 DATABASE_UNAVAILABLEとし、detailsにエラー内容を含める。
// messageはエンドポイントごとの説明。
func handleServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	slog.Error(message,
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		slog.String("error", err.Error()),
	)

	if errors.Is(err, model.ErrDatabaseUnavailable) {
		middleware.WriteErrorResponse(w, http.StatusInternalServerError,
			model.NewDatabaseUnavailableError(message, err))
		return
	}
	middleware.WriteInternalServerError(w)
}
