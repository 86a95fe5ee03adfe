package http

import "net/http"

// NotificationCount devolve o contador agregado do sino.
func (h *Handler) NotificationCount(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	count, err := h.notifier.Compute(r.Context(), caller)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível calcular notificações", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// NotificationsSeen zera o contador movendo a marca d'água geral.
func (h *Handler) NotificationsSeen(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	if err := h.notifier.MarkSeen(r.Context(), caller); err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível registrar visualização", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
