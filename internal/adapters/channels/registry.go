package channels

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/target/mmk-outbound/config"
	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/domain/model"
)

// RegistryOptions groups dependencies for NewRegistry.
type RegistryOptions struct {
	Config     config.ProvidersConfig
	HTTPClient *http.Client // Optional, defaults to a client bounded by Config.HTTPTimeout
	Logger     *slog.Logger
}

// Registry resolves the configured sender for each channel.
type Registry struct {
	mu      sync.RWMutex
	senders map[model.Channel]core.ChannelSender
}

var _ core.ChannelRegistry = (*Registry)(nil)

// NewRegistry builds one adapter per channel according to its provider mode.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "channel_registry")

	client := opts.HTTPClient
	if client == nil {
		client = defaultHTTPClient(opts.Config.HTTPTimeout)
	}
	cfg := opts.Config

	r := &Registry{senders: make(map[model.Channel]core.ChannelSender, len(model.AllChannels))}

	live := []struct {
		channel model.Channel
		mode    config.ProviderMode
		build   func() (core.ChannelSender, error)
	}{
		{model.ChannelSMS, cfg.SMS.Mode, func() (core.ChannelSender, error) {
			return NewTwilioSMSSender(cfg.Twilio, cfg.SMS, client), nil
		}},
		{model.ChannelVoice, cfg.Voice.Mode, func() (core.ChannelSender, error) {
			return NewTwilioVoiceSender(cfg.Twilio, cfg.Voice, client), nil
		}},
		{model.ChannelChat, cfg.Chat.Mode, func() (core.ChannelSender, error) {
			return NewWhatsAppSender(cfg.Chat, client), nil
		}},
		{model.ChannelEmail, cfg.Email.Mode, func() (core.ChannelSender, error) {
			return NewEmailSender(cfg.Email, client)
		}},
	}
	for _, entry := range live {
		if err := r.register(logger, entry.channel, entry.mode, entry.build); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(
	logger *slog.Logger,
	ch model.Channel,
	mode config.ProviderMode,
	live func() (core.ChannelSender, error),
) error {
	if mode != config.ProviderModeLive {
		r.Register(ch, NewMockSender(ch))
		logger.Info("channel adapter configured", "channel", ch, "mode", config.ProviderModeMock)
		return nil
	}
	sender, err := live()
	if err != nil {
		return fmt.Errorf("configure %s adapter: %w", ch, err)
	}
	r.Register(ch, sender)
	logger.Info("channel adapter configured", "channel", ch, "mode", mode)
	return nil
}

// Register installs or replaces the sender for ch.
func (r *Registry) Register(ch model.Channel, sender core.ChannelSender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.senders == nil {
		r.senders = make(map[model.Channel]core.ChannelSender)
	}
	r.senders[ch] = sender
}

// Sender implements core.ChannelRegistry. An unregistered channel is an adapter_missing SendError.
func (r *Registry) Sender(ch model.Channel) (core.ChannelSender, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sender, ok := r.senders[ch]
	if !ok || sender == nil {
		return nil, &SendError{
			Code:    CodeAdapterMissing,
			Message: fmt.Sprintf("no adapter registered for channel %q", ch),
		}
	}
	return sender, nil
}
