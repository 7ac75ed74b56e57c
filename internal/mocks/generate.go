// Package mocks provides gomock implementations of the outbound core ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	jobs := mocks.NewMockOutboundJobRepository(ctrl)
//	jobs.EXPECT().ClaimDue(gomock.Any(), gomock.Any()).Return(nil, model.ErrNoDueJobs)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=outbound_job_repository_mock.go github.com/target/mmk-outbound/internal/core OutboundJobRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=attempt_repository_mock.go github.com/target/mmk-outbound/internal/core AttemptRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=campaign_repository_mock.go github.com/target/mmk-outbound/internal/core CampaignRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=preferences_repository_mock.go github.com/target/mmk-outbound/internal/core PreferencesRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_repository_mock.go github.com/target/mmk-outbound/internal/core IdentityRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=audit_repository_mock.go github.com/target/mmk-outbound/internal/core AuditRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/target/mmk-outbound/internal/core CacheRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=channel_sender_mock.go github.com/target/mmk-outbound/internal/core ChannelSender
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=channel_registry_mock.go github.com/target/mmk-outbound/internal/core ChannelRegistry
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=workflow_notifier_mock.go github.com/target/mmk-outbound/internal/core WorkflowNotifier
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=dead_letter_publisher_mock.go github.com/target/mmk-outbound/internal/core DeadLetterPublisher
