package config

import (
	"fmt"
	"strings"
	"time"
)

// ProviderMode selects between the deterministic mock adapter and the live provider.
type ProviderMode string

const (
	// ProviderModeMock returns synthetic provider ids without network calls.
	ProviderModeMock ProviderMode = "mock"
	// ProviderModeLive calls the real provider API.
	ProviderModeLive ProviderMode = "live"
)

// UnmarshalText implements encoding.TextUnmarshaler for ProviderMode.
func (m *ProviderMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "mock", "live":
		*m = ProviderMode(v)
		return nil
	default:
		return fmt.Errorf("invalid ProviderMode: %q (valid options: mock, live)", v)
	}
}

// ProvidersConfig groups the per-channel provider settings.
type ProvidersConfig struct {
	// HTTPTimeout bounds every provider API call.
	HTTPTimeout time.Duration `env:"PROVIDER_HTTP_TIMEOUT" envDefault:"10s"`

	SMS   SMSProviderConfig
	Voice VoiceProviderConfig
	Chat  ChatProviderConfig
	Email EmailProviderConfig

	Twilio TwilioConfig `envPrefix:"TWILIO_"`
}

// Sanitize applies guardrails to provider settings.
func (p *ProvidersConfig) Sanitize() {
	if p.HTTPTimeout <= 0 {
		p.HTTPTimeout = 10 * time.Second
	}
	p.SMS.Rate.sanitize()
	p.Voice.Rate.sanitize()
	p.Chat.Rate.sanitize()
	p.Email.Rate.sanitize()
	p.SMS.From = strings.TrimSpace(p.SMS.From)
	p.Voice.From = strings.TrimSpace(p.Voice.From)
	p.Twilio.BaseURL = strings.TrimRight(strings.TrimSpace(p.Twilio.BaseURL), "/")
	p.Chat.BaseURL = strings.TrimRight(strings.TrimSpace(p.Chat.BaseURL), "/")
	p.Email.APIURL = strings.TrimSpace(p.Email.APIURL)
	if strings.TrimSpace(p.Email.IDExpr) == "" {
		p.Email.IDExpr = DefaultEmailIDExpr
	}
}

// RateConfig throttles a live adapter.
type RateConfig struct {
	PerSecond float64 `env:"RATE_PER_SEC" envDefault:"10"`
	Burst     int     `env:"RATE_BURST"   envDefault:"10"`
}

func (r *RateConfig) sanitize() {
	if r.PerSecond <= 0 {
		r.PerSecond = 10
	}
	if r.Burst < 1 {
		r.Burst = 1
	}
}

// TwilioConfig holds the credentials shared by the SMS and voice adapters.
type TwilioConfig struct {
	AccountSID string `env:"ACCOUNT_SID"`
	AuthToken  string `env:"AUTH_TOKEN"`
	BaseURL    string `env:"BASE_URL"    envDefault:"https://api.twilio.com"`
}

// SMSProviderConfig configures the SMS channel.
type SMSProviderConfig struct {
	Mode ProviderMode `env:"PROVIDER_SMS_MODE" envDefault:"mock"`
	From string       `env:"SMS_FROM"`
	Rate RateConfig   `                        envPrefix:"OUTBOUND_SMS_"`
}

// VoiceProviderConfig configures the voice channel.
type VoiceProviderConfig struct {
	Mode ProviderMode `env:"PROVIDER_VOICE_MODE" envDefault:"mock"`
	From string       `env:"VOICE_FROM"`
	// Voice is the TwiML <Say> voice.
	Voice string     `env:"VOICE_TTS_VOICE" envDefault:"alice"`
	Rate  RateConfig `                      envPrefix:"OUTBOUND_VOICE_"`
}

// ChatProviderConfig configures the WhatsApp Cloud API chat channel.
type ChatProviderConfig struct {
	Mode          ProviderMode `env:"PROVIDER_CHAT_MODE"       envDefault:"mock"`
	PhoneNumberID string       `env:"WHATSAPP_PHONE_NUMBER_ID"`
	Token         string       `env:"WHATSAPP_TOKEN"`
	BaseURL       string       `env:"WHATSAPP_BASE_URL"        envDefault:"https://graph.facebook.com/v20.0"`
	Rate          RateConfig   `                               envPrefix:"OUTBOUND_CHAT_"`
}

// DefaultEmailIDExpr extracts the message id from common mail API responses.
const DefaultEmailIDExpr = "id || message_id || messageId"

// EmailProviderConfig configures the JSON mail API channel.
type EmailProviderConfig struct {
	Mode              ProviderMode `env:"PROVIDER_EMAIL_MODE"       envDefault:"mock"`
	APIURL            string       `env:"EMAIL_API_URL"`
	From              string       `env:"EMAIL_FROM"`
	APIKey            string       `env:"EMAIL_API_KEY"`
	OAuthClientID     string       `env:"EMAIL_OAUTH_CLIENT_ID"`
	OAuthClientSecret string       `env:"EMAIL_OAUTH_CLIENT_SECRET"`
	OAuthTokenURL     string       `env:"EMAIL_OAUTH_TOKEN_URL"`
	OAuthScopes       []string     `env:"EMAIL_OAUTH_SCOPES"        envSeparator:" "`
	IDExpr            string       `env:"EMAIL_ID_EXPR"             envDefault:"id || message_id || messageId"`
	Rate              RateConfig   `                                envPrefix:"OUTBOUND_EMAIL_"`
}
