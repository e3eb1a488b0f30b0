package academic

import (
	"fmt"
	"math"
)

// GradePoint maps a score in [0,100] to a grade point on the fixed 4.0 scale.
func GradePoint(score float64) float64 {
	switch {
	case score >= 90:
		return 4.0
	case score >= 80:
		return 3.0
	case score >= 70:
		return 2.0
	case score >= 60:
		return 1.0
	default:
		return 0.0
	}
}

// CumulativeGPA is the arithmetic mean of the per-course average grade points
// (not of the raw scores), rounded to 2 decimals. Empty input yields 0.0.
func CumulativeGPA(averages []CourseAverage) float64 {
	if len(averages) == 0 {
		return 0.0
	}
	var total float64
	for _, avg := range averages {
		total += GradePoint(avg.Average)
	}
	return round(total/float64(len(averages)), 2)
}

// AttendanceRate renders present/total as an integer percentage. The zero-log
// sentinel is "N/A" everywhere; call sites must not roll their own.
func AttendanceRate(present, total int) string {
	if total == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%d%%", int(float64(present)/float64(total)*100))
}

// ClassAverage is the mean of the per-course average scores, rounded to 1
// decimal (teacher dashboard). Empty input yields 0.0.
func ClassAverage(averages []CourseAverage) float64 {
	if len(averages) == 0 {
		return 0.0
	}
	var total float64
	for _, avg := range averages {
		total += avg.Average
	}
	return round(total/float64(len(averages)), 1)
}

// PresentCount extracts the "Present" bucket from a status aggregation.
func PresentCount(counts []StatusCount) int {
	for _, c := range counts {
		if c.Status == StatusPresent {
			return c.Count
		}
	}
	return 0
}

// TotalCount sums all status buckets.
func TotalCount(counts []StatusCount) int {
	var total int
	for _, c := range counts {
		total += c.Count
	}
	return total
}

func round(val float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(val*shift) / shift
}
