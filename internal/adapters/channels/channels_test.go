package channels

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-outbound/config"
	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/domain/model"
)

var fastRate = config.RateConfig{PerSecond: 1000, Burst: 10}

func requireSendError(t *testing.T, err error, code string) *SendError {
	t.Helper()
	require.Error(t, err)
	var se *SendError
	require.True(t, errors.As(err, &se), "expected SendError, got %T", err)
	assert.Equal(t, code, se.Code)
	return se
}

func TestMockSender(t *testing.T) {
	sender := NewMockSender(model.ChannelSMS)
	req := core.SendRequest{Destination: "+14155551234", Text: "hello"}

	first, err := sender.Send(context.Background(), req)
	require.NoError(t, err)
	second, err := sender.Send(context.Background(), req)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^mock-sms-[0-9a-f]{16}$`), first.ProviderID)
	assert.Equal(t, first.ProviderID, second.ProviderID)
	assert.Equal(t, MockStatus, first.ProviderStatus)
	assert.Equal(t, "mock", first.Provider)

	other, err := sender.Send(context.Background(), core.SendRequest{Destination: "+14155551234", Text: "bye"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ProviderID, other.ProviderID)

	assert.NotEqual(t,
		MockProviderID(model.ChannelSMS, "+14155551234", "hello"),
		MockProviderID(model.ChannelVoice, "+14155551234", "hello"),
	)
}

func TestRegistry(t *testing.T) {
	t.Run("defaults to mock adapters", func(t *testing.T) {
		r, err := NewRegistry(RegistryOptions{})
		require.NoError(t, err)
		for _, ch := range model.AllChannels {
			sender, err := r.Sender(ch)
			require.NoError(t, err)
			assert.IsType(t, &MockSender{}, sender)
		}
	})

	t.Run("live modes build provider adapters", func(t *testing.T) {
		cfg := config.ProvidersConfig{
			SMS:   config.SMSProviderConfig{Mode: config.ProviderModeLive},
			Voice: config.VoiceProviderConfig{Mode: config.ProviderModeLive},
			Chat:  config.ChatProviderConfig{Mode: config.ProviderModeLive},
			Email: config.EmailProviderConfig{Mode: config.ProviderModeLive},
		}
		r, err := NewRegistry(RegistryOptions{Config: cfg})
		require.NoError(t, err)

		sms, _ := r.Sender(model.ChannelSMS)
		assert.IsType(t, &TwilioSMSSender{}, sms)
		voice, _ := r.Sender(model.ChannelVoice)
		assert.IsType(t, &TwilioVoiceSender{}, voice)
		chat, _ := r.Sender(model.ChannelChat)
		assert.IsType(t, &WhatsAppSender{}, chat)
		email, _ := r.Sender(model.ChannelEmail)
		assert.IsType(t, &EmailSender{}, email)

		_, err = sms.Send(context.Background(), core.SendRequest{Destination: "+14155551234", Text: "x"})
		requireSendError(t, err, CodeConfigMissing)
	})

	t.Run("invalid email id expression fails construction", func(t *testing.T) {
		cfg := config.ProvidersConfig{Email: config.EmailProviderConfig{Mode: config.ProviderModeLive, IDExpr: "messages[?"}}
		_, err := NewRegistry(RegistryOptions{Config: cfg})
		require.Error(t, err)
	})

	t.Run("unknown channel is adapter_missing", func(t *testing.T) {
		r := &Registry{}
		_, err := r.Sender(model.ChannelChat)
		se := requireSendError(t, err, CodeAdapterMissing)
		assert.False(t, se.Retryable)

		r.Register(model.ChannelChat, NewMockSender(model.ChannelChat))
		_, err = r.Sender(model.ChannelChat)
		assert.NoError(t, err)
	})
}

func twilioCreds(baseURL string) config.TwilioConfig {
	return config.TwilioConfig{AccountSID: "AC123", AuthToken: "secret", BaseURL: baseURL}
}

func TestTwilioSMSSender(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		form = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"sid":"SM0123456789abcdef0123456789abcdef","status":"queued"}`)
	}))
	defer srv.Close()

	sender := NewTwilioSMSSender(twilioCreds(srv.URL), config.SMSProviderConfig{From: "+15005550006", Rate: fastRate}, srv.Client())
	res, err := sender.Send(context.Background(), core.SendRequest{Destination: "+14155551234", Text: "Your card was used"})
	require.NoError(t, err)

	assert.Equal(t, "twilio", res.Provider)
	assert.Equal(t, "SM0123456789abcdef0123456789abcdef", res.ProviderID)
	assert.Equal(t, "queued", res.ProviderStatus)
	assert.Equal(t, "+14155551234", form.Get("To"))
	assert.Equal(t, "+15005550006", form.Get("From"))
	assert.Equal(t, "Your card was used", form.Get("Body"))
}

func TestTwilioSMSSender_MissingSender(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	sender := NewTwilioSMSSender(twilioCreds(srv.URL), config.SMSProviderConfig{Rate: fastRate}, srv.Client())
	_, err := sender.Send(context.Background(), core.SendRequest{Destination: "+14155551234", Text: "x"})
	requireSendError(t, err, CodeConfigMissing)
	assert.False(t, called)
}

func TestTwilioVoiceSender(t *testing.T) {
	var twiml string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Calls.json", r.URL.Path)
		require.NoError(t, r.ParseForm())
		twiml = r.PostForm.Get("Twiml")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"sid":"CA0123456789abcdef0123456789abcdef","status":"queued"}`)
	}))
	defer srv.Close()

	sender := NewTwilioVoiceSender(twilioCreds(srv.URL), config.VoiceProviderConfig{From: "+15005550006", Rate: fastRate}, srv.Client())
	res, err := sender.Send(context.Background(), core.SendRequest{Destination: "+14155551234", Text: "Call us <now> & verify"})
	require.NoError(t, err)

	assert.Equal(t, "CA0123456789abcdef0123456789abcdef", res.ProviderID)
	assert.Equal(t, `<Response><Say voice="alice">Call us &lt;now&gt; &amp; verify</Say></Response>`, twiml)
}

func TestProviderStatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		code      string
		retryable bool
	}{
		{"throttled", http.StatusTooManyRequests, `{"message":"Too Many Requests"}`, CodeProviderThrottled, true},
		{"unavailable", http.StatusServiceUnavailable, ``, CodeProviderUnavailable, true},
		{"rejected", http.StatusBadRequest, `{"code":21211,"message":"Invalid 'To' Phone Number"}`, CodeProviderRejected, false},
		{"unauthorized", http.StatusUnauthorized, `not json`, CodeProviderRejected, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			sender := NewTwilioSMSSender(twilioCreds(srv.URL), config.SMSProviderConfig{From: "+15005550006", Rate: fastRate}, srv.Client())
			_, err := sender.Send(context.Background(), core.SendRequest{Destination: "+14155551234", Text: "x"})
			se := requireSendError(t, err, tt.code)
			assert.Equal(t, tt.retryable, se.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, tt.code, se.ErrorCode())
		})
	}

	t.Run("rejection carries provider detail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"Recipient not on WhatsApp","code":131026}}`)
		}))
		defer srv.Close()

		sender := NewWhatsAppSender(config.ChatProviderConfig{PhoneNumberID: "PN1", Token: "tok", BaseURL: srv.URL, Rate: fastRate}, srv.Client())
		_, err := sender.Send(context.Background(), core.SendRequest{Destination: "+14155551234", Text: "x"})
		se := requireSendError(t, err, CodeProviderRejected)
		assert.Contains(t, se.Message, "Recipient not on WhatsApp")
	})
}

func TestProviderDetail_TruncatesOnRuneBoundary(t *testing.T) {
	// 199 ASCII bytes put the cut in the middle of a two-byte rune.
	detail := strings.Repeat("a", maxDetailLength-1) + strings.Repeat("é", 10)
	body, err := json.Marshal(map[string]string{"message": detail})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	sender := NewTwilioSMSSender(twilioCreds(srv.URL), config.SMSProviderConfig{From: "+15005550006", Rate: fastRate}, srv.Client())
	_, err = sender.Send(context.Background(), core.SendRequest{Destination: "+14155551234", Text: "x"})
	se := requireSendError(t, err, CodeProviderRejected)
	assert.True(t, utf8.ValidString(se.Message))
	assert.True(t, strings.HasSuffix(se.Message, strings.Repeat("a", maxDetailLength-1)+"é"))

	assert.Equal(t, "short", truncate("short"))
	assert.Equal(t, maxDetailLength, utf8.RuneCountInString(truncate(strings.Repeat("日本", maxDetailLength))))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	sender := NewTwilioSMSSender(twilioCreds(base), config.SMSProviderConfig{From: "+15005550006", Rate: fastRate}, &http.Client{Timeout: time.Second})
	_, err := sender.Send(context.Background(), core.SendRequest{Destination: "+14155551234", Text: "x"})
	se := requireSendError(t, err, CodeNetworkError)
	assert.True(t, se.Retryable)
}

func TestWhatsAppSender(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/PN1/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"messaging_product":"whatsapp","contacts":[{"wa_id":"14155551234"}],"messages":[{"id":"wamid.HBgLMTQxNTU1NTEyMzQVAgARGBI"}]}`)
	}))
	defer srv.Close()

	sender := NewWhatsAppSender(config.ChatProviderConfig{PhoneNumberID: "PN1", Token: "tok", BaseURL: srv.URL, Rate: fastRate}, srv.Client())
	res, err := sender.Send(context.Background(), core.SendRequest{JobID: "job-1", Destination: "+14155551234", Text: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "wamid.HBgLMTQxNTU1NTEyMzQVAgARGBI", res.ProviderID)
	assert.Equal(t, "accepted", res.ProviderStatus)
	assert.Equal(t, "14155551234", got["to"])
	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, map[string]any{"body": "hi", "preview_url": false}, got["text"])
}

func TestWhatsAppSender_MissingMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"messages":[]}`)
	}))
	defer srv.Close()

	sender := NewWhatsAppSender(config.ChatProviderConfig{PhoneNumberID: "PN1", Token: "tok", BaseURL: srv.URL, Rate: fastRate}, srv.Client())
	_, err := sender.Send(context.Background(), core.SendRequest{Destination: "+14155551234", Text: "hi"})
	requireSendError(t, err, CodeInvalidResponse)
}

func emailConfig(apiURL string) config.EmailProviderConfig {
	return config.EmailProviderConfig{
		Mode:   config.ProviderModeLive,
		APIURL: apiURL,
		From:   "alerts@bank.example",
		APIKey: "key-123",
		Rate:   fastRate,
	}
}

func TestEmailSender(t *testing.T) {
	t.Run("api key and default id expression", func(t *testing.T) {
		var got emailMessage
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
			_, _ = io.WriteString(w, `{"message_id":"msg-42","status":"queued"}`)
		}))
		defer srv.Close()

		sender, err := NewEmailSender(emailConfig(srv.URL), srv.Client())
		require.NoError(t, err)
		res, err := sender.Send(context.Background(), core.SendRequest{
			JobID:       "job-1",
			Destination: "jane@example.com",
			Subject:     "Account notice",
			Text:        "plain",
			HTML:        "<p>html</p>",
		})
		require.NoError(t, err)

		assert.Equal(t, "msg-42", res.ProviderID)
		assert.Equal(t, "queued", res.ProviderStatus)
		assert.Equal(t, "alerts@bank.example", got.From)
		assert.Equal(t, "jane@example.com", got.To)
		assert.Equal(t, "Account notice", got.Subject)
		assert.Equal(t, "<p>html</p>", got.HTML)
	})

	t.Run("falls back to the message id header", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("X-Message-Id", "hdr-7")
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		sender, err := NewEmailSender(emailConfig(srv.URL), srv.Client())
		require.NoError(t, err)
		res, err := sender.Send(context.Background(), core.SendRequest{Destination: "jane@example.com", Text: "x"})
		require.NoError(t, err)
		assert.Equal(t, "hdr-7", res.ProviderID)
		assert.Equal(t, "accepted", res.ProviderStatus)
	})

	t.Run("custom id expression", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"data":{"receipts":[{"ref":"r-1"}]}}`)
		}))
		defer srv.Close()

		cfg := emailConfig(srv.URL)
		cfg.IDExpr = "data.receipts[0].ref"
		sender, err := NewEmailSender(cfg, srv.Client())
		require.NoError(t, err)
		res, err := sender.Send(context.Background(), core.SendRequest{Destination: "jane@example.com", Text: "x"})
		require.NoError(t, err)
		assert.Equal(t, "r-1", res.ProviderID)
	})

	t.Run("missing credentials", func(t *testing.T) {
		cfg := emailConfig("https://mail.example/send")
		cfg.APIKey = ""
		sender, err := NewEmailSender(cfg, nil)
		require.NoError(t, err)
		_, err = sender.Send(context.Background(), core.SendRequest{Destination: "jane@example.com", Text: "x"})
		requireSendError(t, err, CodeConfigMissing)
	})
}

func TestEmailSender_OAuthClientCredentials(t *testing.T) {
	tokenCalls := 0
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"oauth-tok","token_type":"bearer","expires_in":3600}`)
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer oauth-tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"id":"m-1"}`)
	}))
	defer apiSrv.Close()

	cfg := emailConfig(apiSrv.URL)
	cfg.APIKey = ""
	cfg.OAuthClientID = "client"
	cfg.OAuthClientSecret = "secret"
	cfg.OAuthTokenURL = tokenSrv.URL
	cfg.OAuthScopes = []string{"mail.send"}

	sender, err := NewEmailSender(cfg, &http.Client{Timeout: 5 * time.Second})
	require.NoError(t, err)

	for range 2 {
		res, err := sender.Send(context.Background(), core.SendRequest{Destination: "jane@example.com", Text: "x"})
		require.NoError(t, err)
		assert.Equal(t, "m-1", res.ProviderID)
	}
	assert.Equal(t, 1, tokenCalls)
}
