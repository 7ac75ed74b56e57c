package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrJobNotFound      = errors.New("outbound job not found")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrClaimLost        = errors.New("outbound job claim lost")
	ErrJobNotVerifiable = errors.New("outbound job is not awaiting verification")
)
