package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaiso/housekeeper/internal/domain"
)

// TickResponse — результат ручного тика.
type TickResponse struct {
	Poller  string             `json:"poller"`
	Outcome domain.TickOutcome `json:"outcome"`
}

// ListPollers обрабатывает GET /api/v1/pollers.
func (h *Handler) ListPollers(w http.ResponseWriter, _ *http.Request) {
	statuses := h.pollers.Statuses()
	List(w, statuses, len(statuses))
}

// GetPoller обрабатывает GET /api/v1/pollers/{name}.
func (h *Handler) GetPoller(w http.ResponseWriter, r *http.Request) {
	p, err := h.pollers.Get(chi.URLParam(r, "name"))
	if HandlePollerError(w, h.logger, err) {
		return
	}
	Success(w, p.Status())
}

// TickPoller обрабатывает POST /api/v1/pollers/{name}/tick.
//
// Тик проходит те же проверки, что и плановый: на не-лидере вернётся
// outcome "skipped". Запрос ждёт окончания тика, но обрыв соединения
// клиентом тик не отменяет: действие видит контекст без отмены, как и
// плановый тик.
func (h *Handler) TickPoller(w http.ResponseWriter, r *http.Request) {
	p, err := h.pollers.Get(chi.URLParam(r, "name"))
	if HandlePollerError(w, h.logger, err) {
		return
	}

	outcome, err := p.Trigger(context.WithoutCancel(r.Context()))
	if HandlePollerError(w, h.logger, err) {
		return
	}

	h.logger.Info("manual tick", "poller", p.Name(), "outcome", outcome)
	Success(w, TickResponse{Poller: p.Name(), Outcome: outcome})
}
