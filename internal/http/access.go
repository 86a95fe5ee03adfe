package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gestaopredial/patrimonio/internal/access"
)

// SubmitAccessRequest recebe pedido público de acesso ao sistema.
func (h *Handler) SubmitAccessRequest(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Nome     string `json:"nome"`
		Email    string `json:"email"`
		Telefone string `json:"telefone"`
		Tipo     string `json:"tipo"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	created, err := h.access.Submit(r.Context(), access.CreateInput{
		Name:  payload.Nome,
		Email: payload.Email,
		Phone: payload.Telefone,
		Type:  payload.Tipo,
	})
	if err != nil {
		writeDomainError(w, err, "não foi possível registrar pedido")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"pedido": created})
}

// ListAccessRequests lista pedidos de acesso para triagem.
func (h *Handler) ListAccessRequests(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	onlyPending := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("pendentes")), "true")

	items, err := h.access.List(r.Context(), caller, onlyPending)
	if err != nil {
		writeDomainError(w, err, "não foi possível listar pedidos")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"pedidos": items})
}

// ApproveAccessRequest marca pedido como aprovado.
func (h *Handler) ApproveAccessRequest(w http.ResponseWriter, r *http.Request) {
	h.resolveAccessRequest(w, r, true)
}

// DenyAccessRequest marca pedido como negado.
func (h *Handler) DenyAccessRequest(w http.ResponseWriter, r *http.Request) {
	h.resolveAccessRequest(w, r, false)
}

func (h *Handler) resolveAccessRequest(w http.ResponseWriter, r *http.Request, approve bool) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	resolved, err := h.access.Resolve(r.Context(), caller, id, approve)
	if err != nil {
		writeDomainError(w, err, "não foi possível resolver pedido")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"pedido": resolved})
}
