package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 70, Percent(7, 10))
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 100, Percent(4, 4))
}

func TestStatistics_Observe(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	due := validRecord(now.AddDate(0, 0, -7))
	due.CorrectCount, due.IncorrectCount = 4, 2

	notDue := validRecord(now)
	notDue.ItemID = "keep on"
	notDue.ItemCategory = CategoryPhrasal
	notDue.CorrectCount, notDue.IncorrectCount = 0, 1

	mastered := validRecord(now.AddDate(0, 0, -60))
	mastered.ItemID = "be"
	mastered.Status = StatusMastered
	mastered.CorrectCount, mastered.IncorrectCount = 3, 0

	stats := NewStatistics()
	for _, r := range []ReviewRecord{due, notDue, mastered} {
		stats.Observe(r, now)
	}
	stats.Finalize()

	assert.Equal(t, 3, stats.TotalItems)
	assert.Equal(t, 2, stats.LearningCount)
	assert.Equal(t, 1, stats.MasteredCount)
	assert.Equal(t, 0, stats.NewCount)
	assert.Equal(t, 1, stats.DueForReview, "mastered records are excluded")
	assert.Equal(t, 7, stats.TotalCorrect)
	assert.Equal(t, 3, stats.TotalIncorrect)
	assert.Equal(t, 70, stats.Accuracy)
	assert.Equal(t, 33, stats.MasteredPercent)
	assert.Equal(t, CategoryStats{Studied: 2, Mastered: 1}, stats.ByCategory[CategoryIrregular])
	assert.Equal(t, CategoryStats{Studied: 1}, stats.ByCategory[CategoryPhrasal])
	assert.Equal(t, CategoryStats{}, stats.ByCategory[CategoryStative])
}

func TestStatistics_Empty(t *testing.T) {
	t.Parallel()

	stats := NewStatistics()
	stats.Finalize()

	assert.Zero(t, stats.Accuracy)
	assert.Zero(t, stats.MasteredPercent)
	assert.Len(t, stats.ByCategory, 3)
}
