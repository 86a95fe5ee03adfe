package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaopredial/patrimonio/internal/config"
)

// UploadInput representa uma operação de upload simples.
type UploadInput struct {
	Key          string
	Body         []byte
	ContentType  string
	CacheControl string
}

// UploadResult descreve o artefato persistido.
type UploadResult struct {
	URL  string
	ETag string
}

// Uploader define comportamento básico para armazenar blobs.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}

// New escolhe o backend de storage a partir da configuração.
// Sem provider configurado cai no NoopUploader, que rejeita uploads.
func New(cfg config.StorageConfig) (Uploader, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "noop":
		return NoopUploader{}, nil
	case "s3", "r2":
		return NewS3Uploader(S3Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			PublicDomain: cfg.S3PublicURL,
		})
	default:
		return nil, fmt.Errorf("storage: provider desconhecido %q", cfg.Provider)
	}
}

// ObjectKey monta a chave de um anexo sob o prefixo da entidade dona,
// com sufixo aleatório para evitar colisão entre arquivos homônimos.
func ObjectKey(prefix string, ownerID uuid.UUID, filename string) string {
	name := path.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		name = "arquivo"
	}
	return fmt.Sprintf("%s/%s/%d-%s", prefix, ownerID, time.Now().UTC().UnixNano(), name)
}

// Evidence é um arquivo recebido do app aguardando upload.
type Evidence struct {
	Name        string
	ContentType string
	Body        []byte
}

// UploadAll envia os anexos em modo melhor-esforço: falha em um
// arquivo é registrada em log e não interrompe os demais. Retorna as
// URLs dos uploads que deram certo, na ordem de entrada.
func UploadAll(ctx context.Context, up Uploader, log zerolog.Logger, prefix string, ownerID uuid.UUID, files []Evidence) []string {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		if len(f.Body) == 0 {
			continue
		}
		res, err := up.Upload(ctx, UploadInput{
			Key:         ObjectKey(prefix, ownerID, f.Name),
			Body:        f.Body,
			ContentType: f.ContentType,
		})
		if err != nil {
			log.Warn().Err(err).Str("arquivo", f.Name).Msg("upload de anexo falhou")
			continue
		}
		urls = append(urls, res.URL)
	}
	return urls
}
