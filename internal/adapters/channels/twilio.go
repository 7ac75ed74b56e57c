package channels

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"

	"github.com/target/mmk-outbound/config"
	"github.com/target/mmk-outbound/internal/core"
)

const twilioProvider = "twilio"

var (
	twilioSID    = mustCompileExpr("sid")
	twilioStatus = mustCompileExpr("status")
)

type twilioResource string

const (
	twilioMessages twilioResource = "Messages"
	twilioCalls    twilioResource = "Calls"
)

// TwilioSMSSender sends SMS through the Twilio Messages API.
type TwilioSMSSender struct {
	http  httpProvider
	creds config.TwilioConfig
	from  string
}

// NewTwilioSMSSender builds the live SMS adapter. Missing credentials surface at send time.
func NewTwilioSMSSender(creds config.TwilioConfig, cfg config.SMSProviderConfig, client *http.Client) *TwilioSMSSender {
	return &TwilioSMSSender{
		http:  newHTTPProvider(twilioProvider, client, cfg.Rate),
		creds: creds,
		from:  strings.TrimSpace(cfg.From),
	}
}

// Send implements core.ChannelSender.
func (s *TwilioSMSSender) Send(ctx context.Context, req core.SendRequest) (*core.SendResult, error) {
	form := url.Values{}
	form.Set("To", req.Destination)
	form.Set("From", s.from)
	form.Set("Body", req.Text)
	return twilioCreate(ctx, s.http, s.creds, s.from, twilioMessages, form)
}

// TwilioVoiceSender places a text-to-speech call through the Twilio Calls API.
type TwilioVoiceSender struct {
	http  httpProvider
	creds config.TwilioConfig
	from  string
	voice string
}

// NewTwilioVoiceSender builds the live voice adapter.
func NewTwilioVoiceSender(creds config.TwilioConfig, cfg config.VoiceProviderConfig, client *http.Client) *TwilioVoiceSender {
	voice := strings.TrimSpace(cfg.Voice)
	if voice == "" {
		voice = "alice"
	}
	return &TwilioVoiceSender{
		http:  newHTTPProvider(twilioProvider, client, cfg.Rate),
		creds: creds,
		from:  strings.TrimSpace(cfg.From),
		voice: voice,
	}
}

// Send implements core.ChannelSender.
func (s *TwilioVoiceSender) Send(ctx context.Context, req core.SendRequest) (*core.SendResult, error) {
	form := url.Values{}
	form.Set("To", req.Destination)
	form.Set("From", s.from)
	form.Set("Twiml", sayTwiML(s.voice, req.Text))
	return twilioCreate(ctx, s.http, s.creds, s.from, twilioCalls, form)
}

// sayTwiML renders <Response><Say voice="...">text</Say></Response>.
func sayTwiML(voice, text string) string {
	var b strings.Builder
	b.WriteString(`<Response><Say voice="`)
	_ = xml.EscapeText(&b, []byte(voice))
	b.WriteString(`">`)
	_ = xml.EscapeText(&b, []byte(text))
	b.WriteString(`</Say></Response>`)
	return b.String()
}

func twilioCreate(
	ctx context.Context,
	p httpProvider,
	creds config.TwilioConfig,
	from string,
	resource twilioResource,
	form url.Values,
) (*core.SendResult, error) {
	if creds.AccountSID == "" || creds.AuthToken == "" {
		return nil, configMissing("twilio account sid and auth token are required")
	}
	if from == "" {
		return nil, configMissing("twilio sender id is required for %s", strings.ToLower(string(resource)))
	}

	base := strings.TrimRight(creds.BaseURL, "/")
	if base == "" {
		base = "https://api.twilio.com"
	}
	endpoint := base + "/2010-04-01/Accounts/" + url.PathEscape(creds.AccountSID) + "/" + string(resource) + ".json"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, configMissing("twilio endpoint invalid: %v", err)
	}
	httpReq.SetBasicAuth(creds.AccountSID, creds.AuthToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	data := resp.JSON()
	sid := searchString(twilioSID, data)
	if sid == "" {
		return nil, &SendError{Code: CodeInvalidResponse, Message: "twilio response missing sid"}
	}
	status := searchString(twilioStatus, data)
	if status == "" {
		status = "queued"
	}
	return &core.SendResult{Provider: twilioProvider, ProviderID: sid, ProviderStatus: status}, nil
}
