package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gestaopredial/patrimonio/internal/request"
)

// CreateRequest registra nova requisição de serviço. Aceita multipart
// (fotos e documento anexos) ou JSON puro.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	var input request.CreateInput
	var att request.Attachments

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "dados multipart inválidos", nil)
			return
		}

		propertyID, err := uuid.Parse(strings.TrimSpace(r.FormValue("imovel_id")))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "imovel_id inválido", nil)
			return
		}

		input = request.CreateInput{
			PropertyID:  propertyID,
			Title:       r.FormValue("titulo"),
			Description: r.FormValue("descricao"),
			ServiceType: r.FormValue("tipo_servico"),
		}

		if raw := strings.TrimSpace(r.FormValue("valor")); raw != "" {
			valor, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "VALIDATION", "valor inválido", nil)
				return
			}
			input.Valor = &valor
		}

		att.Fotos, err = collectEvidence(r.MultipartForm, "fotos")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		att.Documento, err = firstEvidence(r.MultipartForm, "documento")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
	} else {
		var payload struct {
			ImovelID    string   `json:"imovel_id"`
			Titulo      string   `json:"titulo"`
			Descricao   string   `json:"descricao"`
			TipoServico string   `json:"tipo_servico"`
			Valor       *float64 `json:"valor"`
		}

		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
			return
		}

		propertyID, err := uuid.Parse(strings.TrimSpace(payload.ImovelID))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "imovel_id inválido", nil)
			return
		}

		input = request.CreateInput{
			PropertyID:  propertyID,
			Title:       payload.Titulo,
			Description: payload.Descricao,
			ServiceType: payload.TipoServico,
			Valor:       payload.Valor,
		}
	}

	created, err := h.requests.Create(r.Context(), caller, input, att)
	if err != nil {
		writeDomainError(w, err, "não foi possível criar requisição")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"requisicao": created})
}

// ListRequests lista requisições por aba, com escopo por papel.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	filter := request.ListFilter{Filter: strings.TrimSpace(r.URL.Query().Get("filtro"))}

	if propertyIDStr := strings.TrimSpace(r.URL.Query().Get("imovel_id")); propertyIDStr != "" {
		propertyID, err := uuid.Parse(propertyIDStr)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "imovel_id inválido", nil)
			return
		}
		filter.PropertyID = &propertyID
	}

	if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = v
		}
	}
	if offsetStr := strings.TrimSpace(r.URL.Query().Get("offset")); offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = v
		}
	}

	items, err := h.requests.List(r.Context(), caller, filter)
	if err != nil {
		writeDomainError(w, err, "não foi possível listar requisições")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"requisicoes": items})
}

// GetRequest retorna uma requisição específica.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
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

	item, err := h.requests.Get(r.Context(), caller, id)
	if err != nil {
		writeDomainError(w, err, "não foi possível carregar requisição")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"requisicao": item})
}

// ApproveRequest aprova requisição pendente.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
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

	item, err := h.requests.Approve(r.Context(), caller, id)
	if err != nil {
		writeDomainError(w, err, "não foi possível aprovar requisição")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"requisicao": item})
}

// RejectRequest rejeita requisição pendente com motivo opcional.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
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
		Motivo string `json:"motivo"`
	}
	// corpo vazio é aceitável: rejeição sem motivo
	_ = json.NewDecoder(r.Body).Decode(&payload)

	item, err := h.requests.Reject(r.Context(), caller, id, payload.Motivo)
	if err != nil {
		writeDomainError(w, err, "não foi possível rejeitar requisição")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"requisicao": item})
}

// UpdateRequestExecution atualiza o desfecho de execução pelo próprio
// solicitante.
func (h *Handler) UpdateRequestExecution(w http.ResponseWriter, r *http.Request) {
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
		StatusExecucao string `json:"status_execucao"`
		Observacao     string `json:"observacao"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	item, err := h.requests.UpdateExecution(r.Context(), caller, id, payload.StatusExecucao, payload.Observacao)
	if err != nil {
		writeDomainError(w, err, "não foi possível atualizar execução")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"requisicao": item})
}

// RequestCounters devolve os contadores de aba desde a última marca
// d'água do usuário.
func (h *Handler) RequestCounters(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	counts, err := h.requests.CategoryCounts(r.Context(), caller)
	if err != nil {
		writeDomainError(w, err, "não foi possível calcular contadores")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"contadores": counts})
}

// MarkCategorySeen avança a marca d'água de uma aba.
func (h *Handler) MarkCategorySeen(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "AUTH", "identificação inválida", nil)
		return
	}

	categoria := strings.TrimSpace(chi.URLParam(r, "categoria"))
	if err := h.requests.MarkSeen(r.Context(), caller, categoria); err != nil {
		writeDomainError(w, err, "não foi possível registrar visualização")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
