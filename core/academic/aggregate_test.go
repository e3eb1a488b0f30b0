package academic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradePoint(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  float64
	}{
		{name: "zero", score: 0, want: 0.0},
		{name: "below first boundary", score: 59, want: 0.0},
		{name: "first boundary", score: 60, want: 1.0},
		{name: "mid band", score: 69.9, want: 1.0},
		{name: "second boundary", score: 70, want: 2.0},
		{name: "third boundary", score: 80, want: 3.0},
		{name: "just below top", score: 89.9, want: 3.0},
		{name: "top boundary", score: 90, want: 4.0},
		{name: "max", score: 100, want: 4.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GradePoint(tt.score))
		})
	}
}

func TestGradePointMonotonic(t *testing.T) {
	prev := GradePoint(0)
	for s := 1; s <= 100; s++ {
		got := GradePoint(float64(s))
		if got < prev {
			t.Fatalf("GradePoint(%d) = %v < GradePoint(%d) = %v", s, got, s-1, prev)
		}
		prev = got
	}
}

func TestCumulativeGPA(t *testing.T) {
	assert.Equal(t, 0.0, CumulativeGPA(nil))

	// mean of per-course grade points, not of raw scores
	averages := []CourseAverage{
		{Course: "OS", Average: 92},   // 4.0
		{Course: "Math", Average: 71}, // 2.0
		{Course: "Art", Average: 55},  // 0.0
	}
	assert.Equal(t, 2.0, CumulativeGPA(averages))

	// rounds to 2 decimals
	averages = []CourseAverage{
		{Course: "OS", Average: 92},   // 4.0
		{Course: "Math", Average: 85}, // 3.0
		{Course: "Art", Average: 85},  // 3.0
	}
	assert.Equal(t, 3.33, CumulativeGPA(averages))
}

func TestAttendanceRate(t *testing.T) {
	// zero logs yields the documented sentinel, never a division by zero
	assert.Equal(t, "N/A", AttendanceRate(0, 0))

	assert.Equal(t, "100%", AttendanceRate(10, 10))
	assert.Equal(t, "66%", AttendanceRate(2, 3))
	assert.Equal(t, "0%", AttendanceRate(0, 5))
}

func TestClassAverage(t *testing.T) {
	assert.Equal(t, 0.0, ClassAverage(nil))
	assert.Equal(t, 77.7, ClassAverage([]CourseAverage{
		{Average: 80.5},
		{Average: 74.8},
	}))
}

func TestStatusCounts(t *testing.T) {
	counts := []StatusCount{
		{Status: StatusPresent, Count: 12},
		{Status: StatusAbsent, Count: 3},
		{Status: StatusLate, Count: 1},
	}
	assert.Equal(t, 12, PresentCount(counts))
	assert.Equal(t, 16, TotalCount(counts))
	assert.Equal(t, 0, PresentCount(nil))
	assert.Equal(t, 0, TotalCount(nil))
}
