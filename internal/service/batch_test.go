package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var batchNow = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func newTestBatchService(repo *mockFeedRepo) *BatchService {
	svc := NewBatchService(repo, quietLogger())
	svc.now = func() time.Time { return batchNow }
	return svc
}

func batchRecords(n int) []model.Payload {
	out := make([]model.Payload, n)
	for i := range out {
		out[i] = model.Payload{
			"beanId":   fmt.Sprintf("imp-%02d", i),
			"beanName": fmt.Sprintf("Imported %02d", i),
			"rating":   float64(4),
		}
	}
	return out
}

// =========================================================================
// WINDOWING TESTS
// =========================================================================

func TestBatchPublish_WalksWindows(t *testing.T) {
	repo := newMockFeedRepo()
	svc := newTestBatchService(repo)
	ctx := context.Background()
	records := batchRecords(45)

	res, err := svc.Publish(ctx, BatchInput{Records: records})
	require.NoError(t, err)
	assert.Equal(t, 45, res.Total)
	assert.Equal(t, 20, res.SuccessCount)
	assert.Equal(t, 20, res.Processed)
	assert.Equal(t, 25, res.Remaining)
	assert.True(t, res.HasMore)
	require.NotNil(t, res.NextIndex)
	assert.Equal(t, 20, *res.NextIndex)

	res, err = svc.Publish(ctx, BatchInput{Records: records, StartIndex: *res.NextIndex, BatchSize: 30})
	require.NoError(t, err)
	assert.Equal(t, 25, res.SuccessCount)
	assert.Equal(t, 45, res.Processed)
	assert.Equal(t, 0, res.Remaining)
	assert.False(t, res.HasMore)
	assert.Nil(t, res.NextIndex)

	assert.Len(t, repo.all(), 45)
}

func TestBatchPublish_SkipsExistingKeys(t *testing.T) {
	repo := newMockFeedRepo()
	svc := newTestBatchService(repo)
	ctx := context.Background()
	records := batchRecords(3)

	_, err := svc.Publish(ctx, BatchInput{Records: records})
	require.NoError(t, err)

	records[0]["beanName"] = "changed"
	res, err := svc.Publish(ctx, BatchInput{Records: records})
	require.NoError(t, err)

	assert.Equal(t, 3, res.SuccessCount)
	assert.Equal(t, 0, res.FailCount)
	assert.Equal(t, 3, repo.creates)
	for _, r := range repo.all() {
		assert.NotEqual(t, "changed", r.BeanName, "existing entries are not overwritten")
	}
}

func TestBatchPublish_StartBeyondEnd(t *testing.T) {
	svc := newTestBatchService(newMockFeedRepo())

	res, err := svc.Publish(context.Background(), BatchInput{Records: batchRecords(2), StartIndex: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, 2, res.Processed)
	assert.False(t, res.HasMore)
}

func TestBatchPublish_NoRecords(t *testing.T) {
	svc := newTestBatchService(newMockFeedRepo())

	_, err := svc.Publish(context.Background(), BatchInput{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, MsgBatchNoRecords, err.Error())
}

func TestBatchPublish_CollectsFailures(t *testing.T) {
	repo := newMockFeedRepo()
	repo.createErr = errors.New("write failed")
	svc := newTestBatchService(repo)

	res, err := svc.Publish(context.Background(), BatchInput{Records: batchRecords(15), BatchSize: 15})
	require.NoError(t, err)

	assert.Equal(t, 0, res.SuccessCount)
	assert.Equal(t, 15, res.FailCount)
	assert.Len(t, res.Errors, MaxBatchErrors)
	assert.Equal(t, "imp-00", res.Errors[0].BeanID)
	assert.Equal(t, "Imported 00", res.Errors[0].BeanName)
	assert.Equal(t, "write failed", res.Errors[0].Error)
}

func TestBatchPublish_GeneratesMissingBeanIDs(t *testing.T) {
	repo := newMockFeedRepo()
	svc := newTestBatchService(repo)

	_, err := svc.Publish(context.Background(), BatchInput{Records: []model.Payload{{"beanName": "a"}, {"beanName": "b"}}})
	require.NoError(t, err)

	stored := repo.all()
	require.Len(t, stored, 2)
	assert.NotEqual(t, stored[0].BeanID, stored[1].BeanID)
	for _, r := range stored {
		assert.True(t, strings.HasPrefix(r.BeanID, "batch_"), r.BeanID)
	}
}

// =========================================================================
// CONVERSION TESTS
// =========================================================================

func TestConvertBatchRecord_Defaults(t *testing.T) {
	rec := ConvertBatchRecord(model.Payload{"flavorNotes": "not an array"}, batchNow)

	assert.Equal(t, BatchUserID, rec.UserID)
	assert.Equal(t, BatchUserName, rec.UserName)
	assert.Equal(t, "", rec.UserAvatar)
	assert.Equal(t, model.FeedTypePourOver, rec.Type)
	assert.Equal(t, []string{}, rec.FlavorNotes)
	assert.Equal(t, batchNow, rec.CreateTime)
	assert.Equal(t, batchNow, rec.PublishTime)
	assert.JSONEq(t, `{}`, string(rec.BrewParams))
	assert.Empty(t, rec.BeanID)
}

func TestConvertBatchRecord_Fields(t *testing.T) {
	rec := ConvertBatchRecord(model.Payload{
		"beanId":      "b1",
		"userId":      "someone",
		"type":        "espresso",
		"notes":       "from notes",
		"flavorNotes": []any{"花香", 3, "坚果"},
		"publishTime": map[string]any{"$date": "2024-02-03T04:05:06Z"},
		"createTime":  "garbage",
		"brewParams":  map[string]any{"waterTemp": float64(93)},
	}, batchNow)

	assert.Equal(t, "b1", rec.BeanID)
	assert.Equal(t, "someone", rec.UserID)
	assert.Equal(t, model.FeedTypeEspresso, rec.Type)
	assert.Equal(t, "from notes", rec.Remarks)
	assert.Equal(t, []string{"花香", "坚果"}, rec.FlavorNotes)
	assert.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), rec.PublishTime)
	assert.Equal(t, batchNow, rec.CreateTime)
	assert.JSONEq(t, `{"waterTemp":93}`, string(rec.BrewParams))
}

func TestBatchRating(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{float64(4.5), 4.5},
		{"4.5", 4.5},
		{"4-", 4},
		{"评分 3.5 分", 3.5},
		{"4.5.1", 4.5},
		{"abc", 0},
		{"", 0},
		{nil, 0},
		{true, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, batchRating(tt.in), "batchRating(%v)", tt.in)
	}
}
