package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Mailer envia e-mails através de um serviço externo.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Message é o payload repassado ao webhook de e-mail.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// WebhookMailer entrega mensagens via POST em um webhook HTTP.
type WebhookMailer struct {
	webhookURL string
	client     *http.Client
}

// NewWebhookMailer devolve nil quando não há webhook configurado;
// chamadores tratam nil como mailer desligado.
func NewWebhookMailer(webhookURL string) *WebhookMailer {
	if webhookURL == "" {
		return nil
	}
	return &WebhookMailer{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (m *WebhookMailer) Send(ctx context.Context, msg Message) error {
	if m == nil || m.webhookURL == "" {
		return errors.New("mailer não configurado")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.New("webhook de e-mail recusou a mensagem")
	}
	return nil
}
