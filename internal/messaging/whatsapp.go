package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type WhatsAppConfig struct {
	AccessToken string
	PhoneID     string
	BaseURL     string
	Language    string
	Timeout     time.Duration
}

// Credentials authenticate against the Cloud API. Empty fields fall back to
// the sender's WhatsAppConfig.
type Credentials struct {
	AccessToken string
	PhoneID     string
}

// CredentialsFunc is consulted on every send so edits take effect immediately.
type CredentialsFunc func(ctx context.Context) (Credentials, error)

// WhatsAppSender sends template messages through the WhatsApp Cloud API.
type WhatsAppSender struct {
	cfg         WhatsAppConfig
	http        *http.Client
	credentials CredentialsFunc
}

var ErrWhatsAppNotConfigured = errors.New("messaging: whatsapp access token or phone id not configured")

func NewWhatsAppSender(cfg WhatsAppConfig, client *http.Client) *WhatsAppSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Language == "" {
		cfg.Language = "pt_BR"
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &WhatsAppSender{cfg: cfg, http: client}
}

// WithCredentials makes fn the source of the access token and phone id.
func (s *WhatsAppSender) WithCredentials(fn CredentialsFunc) *WhatsAppSender {
	s.credentials = fn
	return s
}

func (s *WhatsAppSender) Name() string { return "whatsapp" }

func (s *WhatsAppSender) resolve(ctx context.Context) (Credentials, error) {
	c := Credentials{AccessToken: s.cfg.AccessToken, PhoneID: s.cfg.PhoneID}
	if s.credentials == nil {
		return c, nil
	}
	live, err := s.credentials(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("load whatsapp credentials: %w", err)
	}
	if live.AccessToken != "" {
		c.AccessToken = live.AccessToken
	}
	if live.PhoneID != "" {
		c.PhoneID = live.PhoneID
	}
	return c, nil
}

type waTemplateRequest struct {
	MessagingProduct string     `json:"messaging_product"`
	RecipientType    string     `json:"recipient_type"`
	To               string     `json:"to"`
	Type             string     `json:"type"`
	Template         waTemplate `json:"template"`
}

type waTemplate struct {
	Name       string        `json:"name"`
	Language   waLanguage    `json:"language"`
	Components []waComponent `json:"components,omitempty"`
}

type waLanguage struct {
	Code string `json:"code"`
}

type waComponent struct {
	Type       string        `json:"type"`
	Parameters []waParameter `json:"parameters"`
}

type waParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type waResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (s *WhatsAppSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	creds, err := s.resolve(ctx)
	if err != nil {
		return Receipt{}, err
	}
	if creds.AccessToken == "" || creds.PhoneID == "" {
		return Receipt{}, ErrWhatsAppNotConfigured
	}
	if msg.To == "" {
		return Receipt{}, ErrNoRecipient
	}

	payload := waTemplateRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               msg.To,
		Type:             "template",
		Template: waTemplate{
			Name:     msg.Template.ID,
			Language: waLanguage{Code: s.cfg.Language},
		},
	}
	if len(msg.Params) > 0 {
		params := make([]waParameter, 0, len(msg.Params))
		for _, p := range msg.Params {
			params = append(params, waParameter{Type: "text", Text: p})
		}
		payload.Template.Components = []waComponent{{Type: "body", Parameters: params}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, fmt.Errorf("encode whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.cfg.BaseURL, creds.PhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("whatsapp request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Receipt{}, fmt.Errorf("read whatsapp response: %w", err)
	}

	var out waResponse
	_ = json.Unmarshal(respBody, &out)
	if out.Error != nil {
		return Receipt{}, fmt.Errorf("whatsapp api error %d: %s", out.Error.Code, out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Receipt{}, fmt.Errorf("whatsapp api status %d", resp.StatusCode)
	}

	r := Receipt{Status: DeliveryQueued, Provider: s.Name()}
	if len(out.Messages) > 0 {
		r.ProviderMessageID = out.Messages[0].ID
	}
	return r, nil
}
