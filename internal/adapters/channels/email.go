package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/target/mmk-outbound/config"
	"github.com/target/mmk-outbound/internal/core"
)

const (
	emailProvider        = "email_api"
	emailMessageIDHeader = "X-Message-Id"
)

var emailStatus = mustCompileExpr("status")

// EmailSender posts messages to a JSON mail API.
type EmailSender struct {
	http    httpProvider
	cfg     config.EmailProviderConfig
	idExpr  searchFunc
	useAuth bool
}

// NewEmailSender builds the live email adapter. When an OAuth client id is configured the
// client fetches client-credentials tokens; otherwise the API key is sent as a bearer token.
func NewEmailSender(cfg config.EmailProviderConfig, client *http.Client) (*EmailSender, error) {
	expr := strings.TrimSpace(cfg.IDExpr)
	if expr == "" {
		expr = config.DefaultEmailIDExpr
	}
	idExpr, err := compileExpr(expr)
	if err != nil {
		return nil, fmt.Errorf("email id expression: %w", err)
	}

	if client == nil {
		client = defaultHTTPClient(0)
	}
	useOAuth := strings.TrimSpace(cfg.OAuthClientID) != ""
	if useOAuth {
		client = oauthClient(cfg, client)
	}
	return &EmailSender{
		http:    newHTTPProvider(emailProvider, client, cfg.Rate),
		cfg:     cfg,
		idExpr:  idExpr,
		useAuth: useOAuth,
	}, nil
}

func oauthClient(cfg config.EmailProviderConfig, base *http.Client) *http.Client {
	cc := &clientcredentials.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		TokenURL:     cfg.OAuthTokenURL,
		Scopes:       cfg.OAuthScopes,
	}
	// Token requests reuse the bounded base client.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	return &http.Client{
		Timeout: base.Timeout,
		Transport: &oauth2.Transport{
			Source: cc.TokenSource(ctx),
			Base:   base.Transport,
		},
	}
}

type emailMessage struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	HTML      string `json:"html,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Send implements core.ChannelSender.
func (s *EmailSender) Send(ctx context.Context, req core.SendRequest) (*core.SendResult, error) {
	if s.cfg.APIURL == "" || s.cfg.From == "" {
		return nil, configMissing("email api url and sender address are required")
	}
	if !s.useAuth && s.cfg.APIKey == "" {
		return nil, configMissing("email api key or oauth client is required")
	}
	if s.useAuth && s.cfg.OAuthTokenURL == "" {
		return nil, configMissing("email oauth token url is required")
	}

	body, err := json.Marshal(emailMessage{
		From:      s.cfg.From,
		To:        req.Destination,
		Subject:   req.Subject,
		Text:      req.Text,
		HTML:      req.HTML,
		Reference: req.JobID,
	})
	if err != nil {
		return nil, &SendError{Code: CodeProviderRejected, Message: "encode email message", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, configMissing("email api url invalid: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if !s.useAuth {
		httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.http.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	data := resp.JSON()
	id := searchString(s.idExpr, data)
	if id == "" {
		id = strings.TrimSpace(resp.Header.Get(emailMessageIDHeader))
	}
	if id == "" {
		return nil, &SendError{Code: CodeInvalidResponse, Message: "email response missing message id"}
	}
	status := searchString(emailStatus, data)
	if status == "" {
		status = "accepted"
	}
	return &core.SendResult{Provider: emailProvider, ProviderID: id, ProviderStatus: status}, nil
}
