package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

func TestSubmitAppealValidation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	var ve *ValidationError
	_, err := eng.SubmitAppeal(ctx, AppealInput{UserID: "u100", Explanation: ""})
	assert.ErrorAs(err, &ve)
	_, err = eng.SubmitAppeal(ctx, AppealInput{UserID: "", Explanation: "I did nothing wrong"})
	assert.ErrorAs(err, &ve)
}

func TestSubmitAppealCarriesFlags(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	appeal, err := eng.SubmitAppeal(ctx, AppealInput{
		UserID:           "u100",
		Explanation:      "reporting corruption, not harassment",
		EvidenceURLs:     []string{"https://example.com/doc1", "https://example.com/doc2"},
		PublicInterest:   true,
		WhistleblowerTag: true,
	})
	require.NoError(err)
	assert.Equal(models.AppealStatusPending, appeal.Status)
	assert.True(appeal.PublicInterest)
	assert.True(appeal.WhistleblowerTag)
	assert.Contains(appeal.EvidenceURLs, "doc1")
}

func TestApprovedAppealLiftsRestriction(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	restriction, err := eng.ApplyManual(ctx, "u100", models.RestrictionTemp, "spam wave", "admin1", nil)
	require.NoError(err)

	access, err := eng.CheckAccess(ctx, "u100")
	require.NoError(err)
	require.False(access.CanBid)

	appeal, err := eng.SubmitAppeal(ctx, AppealInput{
		UserID:        "u100",
		RestrictionID: &restriction.ID,
		Explanation:   "account was compromised, now secured",
	})
	require.NoError(err)

	require.NoError(eng.ReviewAppeal(ctx, appeal.ID, "admin2", models.AppealStatusApproved, "evidence checks out"))

	// restrictions lifted immediately
	access, err = eng.CheckAccess(ctx, "u100")
	require.NoError(err)
	assert.True(access.CanPost)
	assert.True(access.CanBid)
	assert.True(access.CanComment)

	var stored models.Appeal
	require.NoError(eng.DB.First(&stored, appeal.ID).Error)
	assert.Equal(models.AppealStatusApproved, stored.Status)
	assert.Equal("admin2", stored.ReviewedBy)
	assert.NotNil(stored.ReviewedAt)

	var actions int64
	require.NoError(eng.DB.Model(&models.AdminAction{}).
		Where("action_type = ?", "review_appeal").Count(&actions).Error)
	assert.EqualValues(1, actions)
}

func TestRejectedAppealKeepsRestriction(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	restriction, err := eng.ApplyManual(ctx, "u100", models.RestrictionSuspend, "fraud", "admin1", nil)
	require.NoError(err)

	appeal, err := eng.SubmitAppeal(ctx, AppealInput{
		UserID:        "u100",
		RestrictionID: &restriction.ID,
		Explanation:   "it was my cousin",
	})
	require.NoError(err)

	require.NoError(eng.ReviewAppeal(ctx, appeal.ID, "admin2", models.AppealStatusRejected, "unconvincing"))

	access, err := eng.CheckAccess(ctx, "u100")
	require.NoError(err)
	assert.False(access.CanBid)

	// appeals are single-decision; retrying requires a new appeal
	var ve *ValidationError
	err = eng.ReviewAppeal(ctx, appeal.ID, "admin2", models.AppealStatusApproved, "changed my mind")
	assert.ErrorAs(err, &ve)
}

func TestReviewAppealNotFound(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	assert.ErrorIs(eng.ReviewAppeal(ctx, 404, "admin1", models.AppealStatusApproved, ""), ErrNotFound)

	// appeal referencing someone else's restriction is rejected with no
	// side effects
	otherRestriction, err := eng.ApplyManual(ctx, "u999", models.RestrictionTemp, "reason", "admin1", nil)
	require.NoError(err)
	appeal, err := eng.SubmitAppeal(ctx, AppealInput{
		UserID:        "u100",
		RestrictionID: &otherRestriction.ID,
		Explanation:   "lift this",
	})
	require.NoError(err)

	assert.ErrorIs(eng.ReviewAppeal(ctx, appeal.ID, "admin1", models.AppealStatusApproved, ""), ErrNotFound)

	var stored models.Appeal
	require.NoError(eng.DB.First(&stored, appeal.ID).Error)
	assert.Equal(models.AppealStatusPending, stored.Status)

	access, err := eng.CheckAccess(ctx, "u999")
	require.NoError(err)
	assert.False(access.CanBid)
}

func TestGetPendingAppeals(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	a1, err := eng.SubmitAppeal(ctx, AppealInput{UserID: "u100", Explanation: "first"})
	require.NoError(err)
	_, err = eng.SubmitAppeal(ctx, AppealInput{UserID: "u101", Explanation: "second"})
	require.NoError(err)
	require.NoError(eng.ReviewAppeal(ctx, a1.ID, "admin1", models.AppealStatusRejected, ""))

	pending, err := eng.GetPendingAppeals(ctx, 10)
	require.NoError(err)
	require.Len(pending, 1)
	assert.Equal("u101", pending[0].UserID)
}
