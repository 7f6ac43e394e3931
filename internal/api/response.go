package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/housekeeper/internal/poller"
)

// ErrorCode — машинно-читаемый код в теле ошибки.
type ErrorCode string

const (
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeInvalidState   ErrorCode = "INVALID_STATE"
	ErrCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrCodeMethodNotAllow ErrorCode = "METHOD_NOT_ALLOWED"
)

// ErrorResponse — тело ответа с ошибкой: {"error": {"code", "message"}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// envelope — тело успешного ответа. Total заполняется только для списков.
type envelope struct {
	Data  any  `json:"data"`
	Total *int `json:"total,omitempty"`
}

// JSON пишет v со статусом status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// заголовок уже ушёл, ошибку кодирования клиенту не передать
	_ = json.NewEncoder(w).Encode(v)
}

// Success отвечает 200 с {"data": data}.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, envelope{Data: data})
}

// List отвечает 200 с {"data": items, "total": total}.
func List(w http.ResponseWriter, items any, total int) {
	JSON(w, http.StatusOK, envelope{Data: items, Total: &total})
}

func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// InternalError логирует err и отвечает 500 без подробностей.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandlePollerError пишет ответ для ошибки poller'а и возвращает true,
// если err != nil: неизвестный poller — 404, остановленный — 409.
func HandlePollerError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, poller.ErrPollerNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, poller.ErrStopped):
		Error(w, http.StatusConflict, ErrCodeInvalidState, err.Error())
	default:
		InternalError(w, logger, err)
	}
	return true
}
