package exams

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clubhub/internal/model"
)

func questionSet() []model.ExamQuestion {
	return []model.ExamQuestion{
		{ID: "q1", CorrectAnswer: "A", Points: 5, OrderIndex: 1},
		{ID: "q2", CorrectAnswer: "true", Points: 10, OrderIndex: 2},
		{ID: "q3", CorrectAnswer: "consensus", Points: 15, OrderIndex: 3},
	}
}

func TestScore(t *testing.T) {
	testCases := []struct {
		name         string
		answers      map[string]string
		passingScore int
		score        int
		percentage   float64
		status       string
	}{
		{
			name:         "Two of three matching on the heavy questions passes",
			answers:      map[string]string{"q1": "B", "q2": "true", "q3": "consensus"},
			passingScore: 60,
			score:        25,
			percentage:   83.33,
			status:       model.ExamPassed,
		},
		{
			name:         "All correct",
			answers:      map[string]string{"q1": "A", "q2": "true", "q3": "consensus"},
			passingScore: 60,
			score:        30,
			percentage:   100,
			status:       model.ExamPassed,
		},
		{
			name:         "Only the light question correct fails",
			answers:      map[string]string{"q1": "A", "q2": "false"},
			passingScore: 60,
			score:        5,
			percentage:   16.67,
			status:       model.ExamFailed,
		},
		{
			name:         "Comparison is exact, case and whitespace matter",
			answers:      map[string]string{"q1": "a", "q2": "true ", "q3": "Consensus"},
			passingScore: 0,
			score:        0,
			percentage:   0,
			status:       model.ExamPassed,
		},
		{
			name:         "Exactly at the threshold passes",
			answers:      map[string]string{"q3": "consensus"},
			passingScore: 50,
			score:        15,
			percentage:   50,
			status:       model.ExamPassed,
		},
		{
			name:         "No answers",
			answers:      map[string]string{},
			passingScore: 60,
			score:        0,
			percentage:   0,
			status:       model.ExamFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := Score(questionSet(), tc.answers, tc.passingScore)
			assert.Equal(t, tc.score, outcome.Score)
			assert.Equal(t, 30, outcome.TotalPoints)
			assert.Equal(t, tc.percentage, RoundPercentage(outcome.Percentage))
			assert.Equal(t, tc.status, outcome.Status)
		})
	}
}

func TestScoreUsesUnroundedPercentage(t *testing.T) {
	questions := []model.ExamQuestion{
		{ID: "q1", CorrectAnswer: "x", Points: 14999},
		{ID: "q2", CorrectAnswer: "x", Points: 10001},
	}
	// 59.996% is displayed as 60 but stays below a passing score of 60.
	outcome := Score(questions, map[string]string{"q1": "x", "q2": "y"}, 60)
	assert.Equal(t, 60.0, RoundPercentage(outcome.Percentage))
	assert.Equal(t, model.ExamFailed, outcome.Status)
}

func TestScoreWithoutQuestions(t *testing.T) {
	outcome := Score(nil, map[string]string{"q1": "A"}, 0)
	assert.Equal(t, 0, outcome.TotalPoints)
	assert.Equal(t, 0.0, outcome.Percentage)
	assert.Equal(t, model.ExamPassed, outcome.Status)
	assert.Empty(t, outcome.Answers)
}

func TestScoreDropsForeignAnswers(t *testing.T) {
	outcome := Score(questionSet(), map[string]string{"q1": "A", "other": "A"}, 60)
	assert.Equal(t, map[string]string{"q1": "A"}, outcome.Answers)
}

func TestCanAttempt(t *testing.T) {
	three := 3
	zero := 0
	assert.True(t, CanAttempt(0, &three))
	assert.True(t, CanAttempt(2, &three))
	assert.False(t, CanAttempt(3, &three))
	assert.True(t, CanAttempt(10, nil))
	assert.True(t, CanAttempt(10, &zero))
}

func TestCheckWindow(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	assert.NoError(t, CheckWindow(now, nil, nil))
	assert.NoError(t, CheckWindow(now, &before, &after))
	assert.ErrorIs(t, CheckWindow(now, &after, nil), ErrNotOpen)
	assert.ErrorIs(t, CheckWindow(now, nil, &before), ErrClosed)
}

func TestMinutesTaken(t *testing.T) {
	start := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, MinutesTaken(start, start.Add(29*time.Second)))
	assert.Equal(t, 1, MinutesTaken(start, start.Add(31*time.Second)))
	assert.Equal(t, 45, MinutesTaken(start, start.Add(44*time.Minute+40*time.Second)))
	assert.Equal(t, 0, MinutesTaken(start, start.Add(-time.Minute)))
}

func TestExpired(t *testing.T) {
	start := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	assert.False(t, Expired(start, 30*time.Minute, 5*time.Minute, start.Add(34*time.Minute)))
	assert.True(t, Expired(start, 30*time.Minute, 5*time.Minute, start.Add(36*time.Minute)))
}

func TestHasPassed(t *testing.T) {
	assert.False(t, HasPassed(nil))
	assert.False(t, HasPassed([]model.ExamResult{{Status: model.ExamFailed}, {Status: model.ExamInProgress}}))
	assert.True(t, HasPassed([]model.ExamResult{{Status: model.ExamFailed}, {Status: model.ExamPassed}}))
}
