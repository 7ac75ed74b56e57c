package channels

import (
	"context"
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/domain/model"
)

// MockStatus is the provider status reported by mock sends.
const MockStatus = "accepted"

// MockSender accepts every message and returns a deterministic provider id.
type MockSender struct {
	channel model.Channel
}

// NewMockSender returns a mock adapter for ch.
func NewMockSender(ch model.Channel) *MockSender {
	return &MockSender{channel: ch}
}

// Send implements core.ChannelSender.
func (m *MockSender) Send(ctx context.Context, req core.SendRequest) (*core.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, networkError("mock", err)
	}
	return &core.SendResult{
		Provider:       "mock",
		ProviderID:     MockProviderID(m.channel, req.Destination, req.Text),
		ProviderStatus: MockStatus,
	}, nil
}

// MockProviderID is mock-<channel>-<first 16 hex chars of blake3(channel|destination|text)>.
func MockProviderID(ch model.Channel, destination, text string) string {
	sum := blake3.Sum256([]byte(string(ch) + "|" + destination + "|" + text))
	return "mock-" + string(ch) + "-" + hex.EncodeToString(sum[:8])
}
