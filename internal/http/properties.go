package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gestaopredial/patrimonio/internal/property"
)

// ListProperties lista imóveis visíveis ao usuário, com busca textual.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))

	limit := 0
	if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil {
			limit = v
		}
	}
	offset := 0
	if offsetStr := strings.TrimSpace(r.URL.Query().Get("offset")); offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil {
			offset = v
		}
	}

	items, err := h.properties.List(r.Context(), caller, query, limit, offset)
	if err != nil {
		writeDomainError(w, err, "não foi possível listar imóveis")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"imoveis": items})
}

// GetProperty retorna o imóvel com histórico de decisões e visitas.
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
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

	detail, err := h.properties.Detail(r.Context(), caller, id)
	if err != nil {
		writeDomainError(w, err, "não foi possível carregar imóvel")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"imovel": detail})
}

type propertyPayload struct {
	Utilizacao   string  `json:"utilizacao"`
	Situacao     string  `json:"situacao"`
	NomeCompleto string  `json:"nome_completo"`
	Endereco     string  `json:"endereco"`
	Bairro       string  `json:"bairro"`
	Cidade       string  `json:"cidade"`
	Estado       string  `json:"estado"`
	Regiao       string  `json:"regiao"`
	Proprietario string  `json:"proprietario"`
	Prefeito     string  `json:"prefeito"`
	ImageURL     *string `json:"image_url"`
}

func (p propertyPayload) toInput() property.UpsertInput {
	return property.UpsertInput{
		Utilizacao:   p.Utilizacao,
		Situacao:     p.Situacao,
		NomeCompleto: p.NomeCompleto,
		Endereco:     p.Endereco,
		Bairro:       p.Bairro,
		Cidade:       p.Cidade,
		Estado:       p.Estado,
		Regiao:       p.Regiao,
		Proprietario: p.Proprietario,
		Prefeito:     p.Prefeito,
		ImageURL:     p.ImageURL,
	}
}

// CreateProperty cadastra novo imóvel.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var payload propertyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	created, err := h.properties.Create(r.Context(), caller, payload.toInput())
	if err != nil {
		writeDomainError(w, err, "não foi possível cadastrar imóvel")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"imovel": created})
}

// UpdateProperty substitui os dados cadastrais de um imóvel.
func (h *Handler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
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

	var payload propertyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	updated, err := h.properties.Update(r.Context(), caller, id, payload.toInput())
	if err != nil {
		writeDomainError(w, err, "não foi possível atualizar imóvel")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"imovel": updated})
}

// DeleteProperty remove um imóvel do catálogo.
func (h *Handler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
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

	if err := h.properties.Delete(r.Context(), caller, id); err != nil {
		writeDomainError(w, err, "não foi possível remover imóvel")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "removido"})
}
