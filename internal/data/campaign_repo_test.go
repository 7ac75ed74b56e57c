package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-outbound/internal/domain/model"
	apperrors "github.com/target/mmk-outbound/internal/errors"
	"github.com/target/mmk-outbound/internal/testutil"
)

func TestCampaignRepo(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		clock := NewFixedTimeProvider(repoTestNow)
		repo := NewCampaignRepoWithTimeProvider(db, clock)
		ctx := context.Background()

		created, err := repo.Create(ctx, &model.CreateCampaignRequest{
			Name:            "  fraud-q1  ",
			Purpose:         model.PurposeFraudAlert,
			AllowedChannels: []model.Channel{model.ChannelSMS, model.ChannelVoice},
		})
		require.NoError(t, err)
		assert.Equal(t, "fraud-q1", created.Name)
		assert.Equal(t, model.CampaignStatusActive, created.Status)
		assert.Equal(t, []model.Channel{model.ChannelSMS, model.ChannelVoice}, created.AllowedChannels)
		assert.True(t, created.CreatedAt.Equal(repoTestNow))

		t.Run("get", func(t *testing.T) {
			got, err := repo.GetByID(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, model.PurposeFraudAlert, got.Purpose)
		})

		t.Run("duplicate name conflicts", func(t *testing.T) {
			_, err := repo.Create(ctx, testutil.CampaignRequest("fraud-q1", model.PurposeFraudAlert))
			require.Error(t, err)
			assert.True(t, apperrors.IsConflict(err))
		})

		t.Run("set status", func(t *testing.T) {
			clock.AddTime(time.Minute)
			got, err := repo.SetStatus(ctx, created.ID, model.CampaignStatusInactive)
			require.NoError(t, err)
			assert.Equal(t, model.CampaignStatusInactive, got.Status)
			assert.True(t, got.UpdatedAt.After(got.CreatedAt))

			_, err = repo.SetStatus(ctx, created.ID, "paused")
			assert.True(t, apperrors.IsValidation(err))
		})

		t.Run("list newest first", func(t *testing.T) {
			clock.AddTime(time.Minute)
			second, err := repo.Create(ctx, testutil.CampaignRequest("kyc-refresh", model.PurposeKYCUpdate))
			require.NoError(t, err)

			list, err := repo.List(ctx, 10, 0)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, second.ID, list[0].ID)
			assert.Equal(t, created.ID, list[1].ID)
		})

		t.Run("not found", func(t *testing.T) {
			_, err := repo.GetByID(ctx, "00000000-0000-0000-0000-0000000000aa")
			require.ErrorIs(t, err, ErrCampaignNotFound)
			_, err = repo.SetStatus(ctx, "bogus", model.CampaignStatusActive)
			require.ErrorIs(t, err, ErrCampaignNotFound)
		})
	})
}
