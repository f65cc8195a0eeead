package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

func TestCheckAccessUnrestricted(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	access, err := eng.CheckAccess(ctx, "u100")
	require.NoError(err)
	assert.True(access.CanPost)
	assert.True(access.CanBid)
	assert.True(access.CanComment)
	assert.Empty(access.Restrictions)
	assert.False(access.VerificationRequired)
	assert.Empty(access.RestrictionMessage)
}

func TestCheckAccessPermissionMapping(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	cases := []struct {
		rtype      models.RestrictionType
		canAll     bool
		hasMessage bool
	}{
		{models.RestrictionWarning, true, true},
		{models.RestrictionVisibilityLimit, true, true},
		{models.RestrictionVerifyRequired, true, true},
		{models.RestrictionTemp, false, true},
		{models.RestrictionSuspend, false, true},
		{models.RestrictionPermanentBan, false, true},
	}
	for _, c := range cases {
		t.Run(string(c.rtype), func(t *testing.T) {
			assert := assert.New(t)
			eng := EngineTestFixture(t)

			_, err := eng.ApplyManual(ctx, "u100", c.rtype, "test reason", "admin1", nil)
			require.NoError(err)

			access, err := eng.CheckAccess(ctx, "u100")
			require.NoError(err)
			assert.Equal(c.canAll, access.CanPost)
			assert.Equal(c.canAll, access.CanBid)
			assert.Equal(c.canAll, access.CanComment)
			if c.hasMessage {
				assert.NotEmpty(access.RestrictionMessage)
			}
			if c.rtype == models.RestrictionVerifyRequired {
				assert.True(access.VerificationRequired)
			}
			if c.rtype == models.RestrictionPermanentBan {
				assert.False(access.Appealable)
			} else {
				assert.True(access.Appealable)
			}
		})
	}
}

func TestCheckAccessLatestRestrictionWins(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	_, err := eng.ApplyManual(ctx, "u100", models.RestrictionSuspend, "older", "admin1", nil)
	require.NoError(err)
	time.Sleep(5 * time.Millisecond)
	_, err = eng.ApplyManual(ctx, "u100", models.RestrictionWarning, "newer", "admin1", nil)
	require.NoError(err)

	access, err := eng.CheckAccess(ctx, "u100")
	require.NoError(err)
	// the most recently started restriction determines permissions; the
	// older suspend is still listed for audit
	assert.True(access.CanPost)
	assert.Len(access.Restrictions, 2)
	assert.Equal(models.RestrictionWarning, access.Restrictions[0])
}

func TestApplyManualUpdatesProjection(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	_, err := eng.ApplyManual(ctx, "u100", models.RestrictionSuspend, "tos violation", "admin1", nil)
	require.NoError(err)

	var status models.UserSecurityStatus
	require.NoError(eng.DB.Where("user_id = ?", "u100").First(&status).Error)
	assert.True(status.IsRestricted)
	assert.Equal("tos violation", status.RestrictionReason)
	assert.NotNil(status.RestrictedAt)
	assert.Nil(status.RestrictionExpiresAt)
}

func TestApplyManualValidation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	var ve *ValidationError
	_, err := eng.ApplyManual(ctx, "u100", "house_arrest", "reason", "admin1", nil)
	assert.ErrorAs(err, &ve)
	_, err = eng.ApplyManual(ctx, "u100", models.RestrictionWarning, "", "admin1", nil)
	assert.ErrorAs(err, &ve)
	_, err = eng.ApplyManual(ctx, "", models.RestrictionWarning, "reason", "admin1", nil)
	assert.ErrorAs(err, &ve)
}

func TestApplyAutomaticIdempotent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	require.NoError(eng.ApplyAutomatic(ctx, "u100", models.EventFraud))
	require.NoError(eng.ApplyAutomatic(ctx, "u100", models.EventAPIAbuse))

	// duplicate trigger while a system temp_restrict is live is a no-op
	var count int64
	require.NoError(eng.DB.Model(&models.AccountRestriction{}).Where("user_id = ?", "u100").Count(&count).Error)
	assert.EqualValues(1, count)

	var status models.UserSecurityStatus
	require.NoError(eng.DB.Where("user_id = ?", "u100").First(&status).Error)
	assert.True(status.IsRestricted)
}

func TestLiftIdempotent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	_, err := eng.ApplyManual(ctx, "u100", models.RestrictionTemp, "cooling off", "admin1", nil)
	require.NoError(err)

	require.NoError(eng.Lift(ctx, "u100", "admin1", "resolved"))
	// lifting again with nothing active is still a success
	require.NoError(eng.Lift(ctx, "u100", "admin1", "resolved again"))

	var status models.UserSecurityStatus
	require.NoError(eng.DB.Where("user_id = ?", "u100").First(&status).Error)
	assert.False(status.IsRestricted)
	assert.Empty(status.RestrictionReason)
	assert.Nil(status.RestrictedAt)
	assert.Nil(status.RestrictionExpiresAt)

	// historical rows retained, deactivated with an end time
	var restrictions []models.AccountRestriction
	require.NoError(eng.DB.Where("user_id = ?", "u100").Find(&restrictions).Error)
	require.Len(restrictions, 1)
	assert.False(restrictions[0].IsActive)
	assert.NotNil(restrictions[0].EndAt)

	// lift writes an admin action each time
	var actions int64
	require.NoError(eng.DB.Model(&models.AdminAction{}).
		Where("action_type = ?", "lift_restriction").Count(&actions).Error)
	assert.EqualValues(2, actions)
}

func TestExpiredRestrictionIgnored(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	past := time.Now().Add(-time.Hour)
	start := time.Now().Add(-2 * time.Hour)
	require.NoError(eng.DB.Create(&models.AccountRestriction{
		UserID:          "u100",
		RestrictionType: models.RestrictionTemp,
		Reason:          "expired already",
		StartAt:         start,
		EndAt:           &past,
		AppliedBy:       "system",
		IsActive:        true,
		CreatedAt:       start,
	}).Error)

	access, err := eng.CheckAccess(ctx, "u100")
	require.NoError(err)
	assert.True(access.CanPost)
	assert.True(access.CanBid)
	assert.Empty(access.Restrictions)
}

func TestCheckAccessServesCachedResult(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	first, err := eng.CheckAccess(ctx, "u100")
	require.NoError(err)
	assert.True(first.CanPost)

	// mutations purge the cached projection, so the fresh state is visible
	// on the next check
	_, err = eng.ApplyManual(ctx, "u100", models.RestrictionSuspend, "reason", "admin1", nil)
	require.NoError(err)

	access, err := eng.CheckAccess(ctx, "u100")
	require.NoError(err)
	assert.False(access.CanPost)
}
