package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// PanicRecorder はpanicの発生を記録する。metrics.Collectorが実装する。
type PanicRecorder interface {
	RecordPanic()
}

// NewRecoveryMiddleware はハンドラー内のpanicを回収して500 INTERNAL_ERRORを返すミドルウェアを生成する。
// 回収したpanicはリクエストIDとスタックトレース付きでerrorレベルに記録する。
// recorderがnilの場合は件数を記録しない。
// http.ErrAbortHandlerはnet/httpが接続の中断に使うため、回収せずに再送出する。
func NewRecoveryMiddleware(logger *slog.Logger, recorder PanicRecorder) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("handler panicked",
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)
				if recorder != nil {
					recorder.RecordPanic()
				}
				WriteInternalServerError(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
