package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortReasons_PutsDNCFirst(t *testing.T) {
	got := SortReasons([]ReasonCode{ReasonQuietHours, ReasonDNC, ReasonChannelNotAllowed, ReasonQuietHours})
	assert.Equal(t, []ReasonCode{ReasonDNC, ReasonChannelNotAllowed, ReasonQuietHours}, got)
	assert.Nil(t, SortReasons(nil))
}

func TestParseTimeOfDay(t *testing.T) {
	v, err := ParseTimeOfDay("22:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(22*60+30), v)
	assert.Equal(t, "22:30", v.String())

	for _, bad := range []string{"", "24:00", "7", "07:60", "aa:bb"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestTimeOfDayOf(t *testing.T) {
	ts := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, MustParseTimeOfDay("23:30"), TimeOfDayOf(ts))
}

func TestChannel_UnmarshalText(t *testing.T) {
	var c Channel
	require.NoError(t, c.UnmarshalText([]byte(" SMS ")))
	assert.Equal(t, ChannelSMS, c)
	assert.Error(t, c.UnmarshalText([]byte("fax")))
}

func TestCampaignPurpose_AlwaysSensitive(t *testing.T) {
	assert.True(t, PurposeFraudAlert.AlwaysSensitive())
	assert.True(t, PurposeCollections.AlwaysSensitive())
	assert.True(t, PurposeKYCUpdate.AlwaysSensitive())
	assert.True(t, PurposeCaseFollowup.AlwaysSensitive())
	assert.False(t, PurposeServiceNotice.AlwaysSensitive())
}

func TestJobTransition_Validate(t *testing.T) {
	now := time.Now()
	queued := JobTransition{JobID: "j", ClaimToken: "c", Status: JobStatusQueued, NextAttemptAt: &now}
	require.NoError(t, queued.Validate())

	queued.NextAttemptAt = nil
	require.Error(t, queued.Validate())

	sent := JobTransition{JobID: "j", ClaimToken: "c", Status: JobStatusSent, NextAttemptAt: &now}
	require.Error(t, sent.Validate())
	sent.NextAttemptAt = nil
	require.NoError(t, sent.Validate())
}

func TestCampaign_Allows(t *testing.T) {
	c := &Campaign{AllowedChannels: []Channel{ChannelSMS}}
	assert.True(t, c.Allows(ChannelSMS))
	assert.False(t, c.Allows(ChannelVoice))
	assert.True(t, (&Campaign{}).Allows(ChannelVoice))
}

func TestCreateCampaignRequest_Normalize(t *testing.T) {
	req := CreateCampaignRequest{
		Name:            "  Fraud ",
		Purpose:         PurposeFraudAlert,
		AllowedChannels: []Channel{ChannelSMS, ChannelSMS, ChannelVoice},
	}
	req.Normalize()
	require.NoError(t, req.Validate())
	assert.Equal(t, "Fraud", req.Name)
	assert.Equal(t, CampaignStatusActive, req.Status)
	assert.Equal(t, []Channel{ChannelSMS, ChannelVoice}, req.AllowedChannels)
}
