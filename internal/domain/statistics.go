package domain

import (
	"math"
	"time"
)

// CategoryStats is the progress of one catalog category.
type CategoryStats struct {
	Studied  int `json:"studied"`
	Mastered int `json:"mastered"`
}

// Statistics summarizes every record in one namespace at a point in time.
type Statistics struct {
	TotalItems      int                            `json:"totalItems"`
	NewCount        int                            `json:"newCount"`
	LearningCount   int                            `json:"learningCount"`
	MasteredCount   int                            `json:"masteredCount"`
	DueForReview    int                            `json:"dueForReview"`
	TotalCorrect    int                            `json:"totalCorrect"`
	TotalIncorrect  int                            `json:"totalIncorrect"`
	Accuracy        int                            `json:"accuracy"`
	MasteredPercent int                            `json:"masteredPercent"`
	ByCategory      map[ItemCategory]CategoryStats `json:"byCategory"`
}

// NewStatistics returns empty statistics with a zero entry for every category.
func NewStatistics() Statistics {
	byCategory := make(map[ItemCategory]CategoryStats, len(Categories()))
	for _, c := range Categories() {
		byCategory[c] = CategoryStats{}
	}
	return Statistics{ByCategory: byCategory}
}

// Observe folds one record into the running totals.
func (s *Statistics) Observe(r ReviewRecord, now time.Time) {
	s.TotalItems++
	s.TotalCorrect += r.CorrectCount
	s.TotalIncorrect += r.IncorrectCount

	switch r.Status {
	case StatusNew:
		s.NewCount++
	case StatusLearning:
		s.LearningCount++
	case StatusMastered:
		s.MasteredCount++
	}
	if r.IsDue(now) {
		s.DueForReview++
	}

	if s.ByCategory == nil {
		s.ByCategory = make(map[ItemCategory]CategoryStats)
	}
	cs := s.ByCategory[r.ItemCategory]
	cs.Studied++
	if r.Status == StatusMastered {
		cs.Mastered++
	}
	s.ByCategory[r.ItemCategory] = cs
}

// Finalize computes the derived percentages. Call it once after the last
// Observe.
func (s *Statistics) Finalize() {
	s.Accuracy = Percent(s.TotalCorrect, s.TotalCorrect+s.TotalIncorrect)
	s.MasteredPercent = Percent(s.MasteredCount, s.TotalItems)
}

// Percent returns round(100*part/whole), or 0 when whole is zero.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}
