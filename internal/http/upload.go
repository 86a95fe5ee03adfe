package http

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gestaopredial/patrimonio/internal/storage"
)

const (
	maxUploadMemory = 32 << 20
	maxFileBytes    = 10 << 20
)

func readMultipartFile(header *multipart.FileHeader, limit int64) ([]byte, string, error) {
	file, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("falha ao abrir arquivo: %w", err)
	}
	defer file.Close()

	buf := bytes.NewBuffer(nil)
	// Lê um byte além do teto para distinguir "exatamente no limite"
	// de "estourou o limite".
	if _, err := io.Copy(buf, io.LimitReader(file, limit+1)); err != nil {
		return nil, "", fmt.Errorf("falha ao ler arquivo: %w", err)
	}

	if int64(buf.Len()) > limit {
		return nil, "", fmt.Errorf("arquivo excede %d bytes", limit)
	}

	contentType := header.Header.Get("Content-Type")
	if strings.TrimSpace(contentType) == "" {
		contentType = http.DetectContentType(buf.Bytes())
	}

	return buf.Bytes(), contentType, nil
}

// collectEvidence materializa todos os arquivos de um campo multipart.
func collectEvidence(form *multipart.Form, field string) ([]storage.Evidence, error) {
	if form == nil {
		return nil, nil
	}

	headers := form.File[field]
	evidences := make([]storage.Evidence, 0, len(headers))
	for _, header := range headers {
		body, contentType, err := readMultipartFile(header, maxFileBytes)
		if err != nil {
			return nil, err
		}
		evidences = append(evidences, storage.Evidence{
			Name:        header.Filename,
			ContentType: contentType,
			Body:        body,
		})
	}
	return evidences, nil
}

// firstEvidence devolve o primeiro arquivo do campo, se houver.
func firstEvidence(form *multipart.Form, field string) (*storage.Evidence, error) {
	evidences, err := collectEvidence(form, field)
	if err != nil {
		return nil, err
	}
	if len(evidences) == 0 {
		return nil, nil
	}
	return &evidences[0], nil
}
