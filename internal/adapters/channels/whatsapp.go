package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/target/mmk-outbound/config"
	"github.com/target/mmk-outbound/internal/core"
)

const whatsappProvider = "whatsapp"

var (
	whatsappMessageID = mustCompileExpr("messages[0].id")
	whatsappStatus    = mustCompileExpr("messages[0].message_status")
)

// WhatsAppSender sends text messages through the WhatsApp Cloud API.
type WhatsAppSender struct {
	http httpProvider
	cfg  config.ChatProviderConfig
}

// NewWhatsAppSender builds the live chat adapter.
func NewWhatsAppSender(cfg config.ChatProviderConfig, client *http.Client) *WhatsAppSender {
	return &WhatsAppSender{http: newHTTPProvider(whatsappProvider, client, cfg.Rate), cfg: cfg}
}

type whatsappText struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type whatsappMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsappText `json:"text"`
	BizOpaqueData    string       `json:"biz_opaque_callback_data,omitempty"`
}

// Send implements core.ChannelSender.
func (s *WhatsAppSender) Send(ctx context.Context, req core.SendRequest) (*core.SendResult, error) {
	if s.cfg.PhoneNumberID == "" || s.cfg.Token == "" {
		return nil, configMissing("whatsapp phone number id and token are required")
	}
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	if base == "" {
		base = "https://graph.facebook.com/v20.0"
	}

	body, err := json.Marshal(whatsappMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               strings.TrimPrefix(req.Destination, "+"),
		Type:             "text",
		Text:             whatsappText{Body: req.Text},
		BizOpaqueData:    req.JobID,
	})
	if err != nil {
		return nil, &SendError{Code: CodeProviderRejected, Message: "encode whatsapp message", Cause: err}
	}

	endpoint := base + "/" + url.PathEscape(s.cfg.PhoneNumberID) + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, configMissing("whatsapp endpoint invalid: %v", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.http.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	data := resp.JSON()
	id := searchString(whatsappMessageID, data)
	if id == "" {
		return nil, &SendError{Code: CodeInvalidResponse, Message: "whatsapp response missing message id"}
	}
	status := searchString(whatsappStatus, data)
	if status == "" {
		status = "accepted"
	}
	return &core.SendResult{Provider: whatsappProvider, ProviderID: id, ProviderStatus: status}, nil
}
