package http

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
)

func multipartFileHeader(t *testing.T, field, name string, body []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := part.Write(body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(maxUploadMemory); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	headers := req.MultipartForm.File[field]
	if len(headers) != 1 {
		t.Fatalf("expected 1 arquivo got %d", len(headers))
	}
	return headers[0]
}

func TestReadMultipartFileAtLimit(t *testing.T) {
	const limit = 64
	header := multipartFileHeader(t, "fotos", "exata.jpg", bytes.Repeat([]byte("a"), limit))

	body, _, err := readMultipartFile(header, limit)
	if err != nil {
		t.Fatalf("arquivo no limite deveria passar: %v", err)
	}
	if len(body) != limit {
		t.Fatalf("expected %d bytes got %d", limit, len(body))
	}
}

func TestReadMultipartFileOverLimit(t *testing.T) {
	const limit = 64
	header := multipartFileHeader(t, "fotos", "grande.jpg", bytes.Repeat([]byte("a"), limit+1))

	if _, _, err := readMultipartFile(header, limit); err == nil || !strings.Contains(err.Error(), "excede") {
		t.Fatalf("expected erro de tamanho got %v", err)
	}
}
