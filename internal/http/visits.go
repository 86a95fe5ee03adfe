package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestaopredial/patrimonio/internal/visit"
)

// RecordVisit registra uma visita de fiscalização, com fotos e,
// quando há intercorrência, a requisição de serviço acoplada.
func (h *Handler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "dados multipart inválidos", nil)
		return
	}

	propertyID, err := uuid.Parse(strings.TrimSpace(r.FormValue("imovel_id")))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "imovel_id inválido", nil)
		return
	}

	input := visit.RecordInput{
		PropertyID:  propertyID,
		Type:        r.FormValue("tipo"),
		Title:       r.FormValue("titulo"),
		Description: r.FormValue("descricao"),
		ServiceType: r.FormValue("tipo_servico"),
	}

	if raw := strings.TrimSpace(r.FormValue("data")); raw != "" {
		date, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "data inválida, use RFC3339", nil)
			return
		}
		input.Date = date
	}

	if raw := strings.TrimSpace(r.FormValue("valor")); raw != "" {
		valor, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "valor inválido", nil)
			return
		}
		input.Valor = &valor
	}

	fotos, err := collectEvidence(r.MultipartForm, "fotos")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	documento, err := firstEvidence(r.MultipartForm, "documento")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	created, coupled, err := h.visits.Record(r.Context(), caller, input, fotos, documento)
	if err != nil {
		writeDomainError(w, err, "não foi possível registrar visita")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"visita":     created,
		"requisicao": coupled,
	})
}

// GetVisit retorna uma visita.
func (h *Handler) GetVisit(w http.ResponseWriter, r *http.Request) {
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

	item, err := h.visits.Get(r.Context(), caller, id)
	if err != nil {
		writeDomainError(w, err, "não foi possível carregar visita")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"visita": item})
}

// ListPropertyVisits lista visitas de um imóvel.
func (h *Handler) ListPropertyVisits(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	propertyID, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	items, err := h.visits.ListByProperty(r.Context(), caller, propertyID)
	if err != nil {
		writeDomainError(w, err, "não foi possível listar visitas")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"visitas": items})
}

// ListMyVisits lista as visitas registradas pelo próprio usuário.
func (h *Handler) ListMyVisits(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	items, err := h.visits.ListMine(r.Context(), caller)
	if err != nil {
		writeDomainError(w, err, "não foi possível listar visitas")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"visitas": items})
}
