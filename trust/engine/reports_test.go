package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quickbid0/quick-bid-jan-6-sub008/trust/models"
)

func TestSubmitReportValidation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	var ve *ValidationError
	_, err := eng.SubmitReport(ctx, ReportInput{ReportedUserID: "u200", ContentType: "post", ReportReason: "spam"})
	assert.ErrorAs(err, &ve)
	_, err = eng.SubmitReport(ctx, ReportInput{ReporterID: "u100", ReportedUserID: "u200", ContentType: "post"})
	assert.ErrorAs(err, &ve)
	_, err = eng.SubmitReport(ctx, ReportInput{ReporterID: "u100", ReportedUserID: "u200", ContentType: "billboard", ReportReason: "spam"})
	assert.ErrorAs(err, &ve)

	var count int64
	assert.NoError(eng.DB.Model(&models.ContentReport{}).Count(&count).Error)
	assert.EqualValues(0, count)
}

func TestCoordinatedReportDetection(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	// first three reports from the same source are taken at face value
	for i := 0; i < 3; i++ {
		rep, err := eng.SubmitReport(ctx, ReportInput{
			ReporterID:     fmt.Sprintf("u%d", 100+i),
			ReportedUserID: "u200",
			ContentType:    "auction",
			ContentID:      "a1",
			ReportReason:   "counterfeit item",
			IPAddress:      "203.0.113.7",
		})
		require.NoError(err)
		assert.False(rep.IsCoordinated, "report %d", i+1)
		assert.Equal(1.0, rep.ReportWeight, "report %d", i+1)
	}

	// the fourth (and later) from the same ip hash is down-weighted
	for i := 3; i < 5; i++ {
		rep, err := eng.SubmitReport(ctx, ReportInput{
			ReporterID:     fmt.Sprintf("u%d", 100+i),
			ReportedUserID: "u200",
			ContentType:    "auction",
			ContentID:      "a1",
			ReportReason:   "counterfeit item",
			IPAddress:      "203.0.113.7",
		})
		require.NoError(err)
		assert.True(rep.IsCoordinated, "report %d", i+1)
		assert.Equal(0.5, rep.ReportWeight, "report %d", i+1)
	}

	// a different source against the same user is not coordinated
	rep, err := eng.SubmitReport(ctx, ReportInput{
		ReporterID:     "u300",
		ReportedUserID: "u200",
		ContentType:    "auction",
		ContentID:      "a1",
		ReportReason:   "counterfeit item",
		IPAddress:      "198.51.100.9",
	})
	require.NoError(err)
	assert.False(rep.IsCoordinated)

	// raw IP never persisted
	var stored models.ContentReport
	require.NoError(eng.DB.First(&stored).Error)
	assert.NotContains(stored.IPHash, "203.0.113.7")
}

func TestMassReportThresholdFiresOnce(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	massEvents := func() int64 {
		var n int64
		require.NoError(eng.DB.Model(&models.SecurityEvent{}).
			Where("user_id = ? AND event_type = ?", "u200", models.EventMassReports).
			Count(&n).Error)
		return n
	}

	// reports from distinct sources so coordination stays out of the way
	for i := 0; i < 4; i++ {
		_, err := eng.SubmitReport(ctx, ReportInput{
			ReporterID:     fmt.Sprintf("u%d", 100+i),
			ReportedUserID: "u200",
			ContentType:    "post",
			ContentID:      fmt.Sprintf("p%d", i),
			ReportReason:   "harassment",
			IPAddress:      fmt.Sprintf("203.0.113.%d", i+1),
		})
		require.NoError(err)
		assert.EqualValues(0, massEvents(), "after report %d", i+1)
	}

	// the fifth pending report crosses the threshold: exactly one event
	_, err := eng.SubmitReport(ctx, ReportInput{
		ReporterID:     "u104",
		ReportedUserID: "u200",
		ContentType:    "post",
		ContentID:      "p4",
		ReportReason:   "harassment",
		IPAddress:      "203.0.113.5",
	})
	require.NoError(err)
	assert.EqualValues(1, massEvents())

	// a sixth does not re-fire
	_, err = eng.SubmitReport(ctx, ReportInput{
		ReporterID:     "u105",
		ReportedUserID: "u200",
		ContentType:    "post",
		ContentID:      "p5",
		ReportReason:   "harassment",
		IPAddress:      "203.0.113.6",
	})
	require.NoError(err)
	assert.EqualValues(1, massEvents())

	// mass_reports is high severity, so the automatic restriction landed too
	var active int64
	require.NoError(eng.DB.Model(&models.AccountRestriction{}).
		Where("user_id = ? AND is_active = ?", "u200", true).Count(&active).Error)
	assert.EqualValues(1, active)
}

func TestReviewReport(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng := EngineTestFixture(t)

	rep, err := eng.SubmitReport(ctx, ReportInput{
		ReporterID:     "u100",
		ReportedUserID: "u200",
		ContentType:    "comment",
		ContentID:      "c1",
		ReportReason:   "abuse",
	})
	require.NoError(err)

	require.NoError(eng.ReviewReport(ctx, rep.ID, "admin1", models.ReportStatusDismissed, "no violation found"))

	var stored models.ContentReport
	require.NoError(eng.DB.First(&stored, rep.ID).Error)
	assert.Equal(models.ReportStatusDismissed, stored.Status)

	assert.ErrorIs(eng.ReviewReport(ctx, 9999, "admin1", models.ReportStatusDismissed, ""), ErrNotFound)

	var ve *ValidationError
	assert.ErrorAs(eng.ReviewReport(ctx, rep.ID, "admin1", models.ReportStatusPending, ""), &ve)

	pending, err := eng.GetPendingReports(ctx, 10)
	require.NoError(err)
	assert.Empty(pending)
}
