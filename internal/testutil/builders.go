package testutil

import (
	"time"

	"github.com/target/mmk-outbound/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateOutboundJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateOutboundJobRequest
}

// NewJobRequest creates a JobRequestBuilder for an SMS service notice to a known customer.
func NewJobRequest(campaignID string) *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateOutboundJobRequest{
			CampaignID:    campaignID,
			CustomerID:    StringPtr("cust-1"),
			TargetAddress: "+15551234567",
			Channel:       model.ChannelSMS,
			Payload: model.OutboundPayload{
				VerificationState: model.VerificationUnset,
				Content: model.ServiceNoticeContent{
					Message: model.Message{Text: "Your statement is ready."},
				},
			},
		},
	}
}

// WithCustomerID sets the customer ID. An empty string clears it.
func (b *JobRequestBuilder) WithCustomerID(customerID string) *JobRequestBuilder {
	if customerID == "" {
		b.req.CustomerID = nil
		return b
	}
	b.req.CustomerID = &customerID
	return b
}

// WithChannel sets the channel and target address together.
func (b *JobRequestBuilder) WithChannel(ch model.Channel, address string) *JobRequestBuilder {
	b.req.Channel = ch
	b.req.TargetAddress = address
	return b
}

// WithContent sets the payload content.
func (b *JobRequestBuilder) WithContent(content model.Content) *JobRequestBuilder {
	b.req.Payload.Content = content
	return b
}

// WithSensitive marks the payload sensitive.
func (b *JobRequestBuilder) WithSensitive(sensitive bool) *JobRequestBuilder {
	b.req.Payload.Sensitive = sensitive
	return b
}

// WithVerificationState sets the payload verification state.
func (b *JobRequestBuilder) WithVerificationState(state model.VerificationState) *JobRequestBuilder {
	b.req.Payload.VerificationState = state
	return b
}

// WithTimezoneHint sets the payload timezone hint.
func (b *JobRequestBuilder) WithTimezoneHint(tz string) *JobRequestBuilder {
	b.req.Payload.TimezoneHint = tz
	return b
}

// WithMaxAttempts sets the maximum number of attempts.
func (b *JobRequestBuilder) WithMaxAttempts(n int) *JobRequestBuilder {
	b.req.MaxAttempts = n
	return b
}

// WithScheduledAt sets the scheduled time.
func (b *JobRequestBuilder) WithScheduledAt(at time.Time) *JobRequestBuilder {
	b.req.ScheduledAt = &at
	return b
}

// Build returns the constructed request.
func (b *JobRequestBuilder) Build() *model.CreateOutboundJobRequest {
	return b.req
}

// CampaignRequest returns an active campaign request allowing every channel.
func CampaignRequest(name string, purpose model.CampaignPurpose) *model.CreateCampaignRequest {
	return &model.CreateCampaignRequest{
		Name:            name,
		Purpose:         purpose,
		AllowedChannels: append([]model.Channel(nil), model.AllChannels...),
		Status:          model.CampaignStatusActive,
	}
}

// FraudAlertJobRequest creates a sensitive, unverified fraud alert job request.
func FraudAlertJobRequest(campaignID string) *model.CreateOutboundJobRequest {
	return NewJobRequest(campaignID).
		WithSensitive(true).
		WithContent(model.FraudAlertContent{
			Message:  model.Message{Text: "We blocked a card payment of 412.00 at 03:12."},
			AlertRef: "FA-1001",
		}).
		Build()
}

// UnknownPartyJobRequest creates a job request with no resolved customer.
func UnknownPartyJobRequest(campaignID string) *model.CreateOutboundJobRequest {
	return NewJobRequest(campaignID).WithCustomerID("").Build()
}
