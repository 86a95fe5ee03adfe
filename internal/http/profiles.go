package http

import (
	"encoding/json"
	"net/http"

	"github.com/gestaopredial/patrimonio/internal/profile"
)

// ListProfiles lista todos os perfis cadastrados.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	items, err := h.profiles.List(r.Context(), caller)
	if err != nil {
		writeDomainError(w, err, "não foi possível listar usuários")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"usuarios": items})
}

// GetProfile retorna um perfil específico.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
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

	item, err := h.profiles.Get(r.Context(), caller, id)
	if err != nil {
		writeDomainError(w, err, "não foi possível carregar usuário")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"usuario": item})
}

// CreateProfile cadastra novo usuário do app.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload struct {
		Email   string   `json:"email"`
		Nome    string   `json:"nome"`
		Senha   string   `json:"senha"`
		Papel   string   `json:"papel"`
		Estados []string `json:"estados"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	created, err := h.profiles.Create(r.Context(), caller, profile.CreateInput{
		Email:    payload.Email,
		FullName: payload.Nome,
		Password: payload.Senha,
		Role:     payload.Papel,
		States:   payload.Estados,
	})
	if err != nil {
		writeDomainError(w, err, "não foi possível criar usuário")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"usuario": created})
}

// UpdateProfile atualiza parcialmente um perfil.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
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

	var payload struct {
		Nome    *string  `json:"nome"`
		Papel   *string  `json:"papel"`
		Estados []string `json:"estados"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	updated, err := h.profiles.Update(r.Context(), caller, profile.UpdateInput{
		ID:       id,
		FullName: payload.Nome,
		Role:     payload.Papel,
		States:   payload.Estados,
	})
	if err != nil {
		writeDomainError(w, err, "não foi possível atualizar usuário")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"usuario": updated})
}

// DeleteProfile desativa um perfil.
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
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

	if err := h.profiles.Delete(r.Context(), caller, id); err != nil {
		writeDomainError(w, err, "não foi possível remover usuário")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "removido"})
}
