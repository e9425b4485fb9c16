package grades

// PassingGradePoint is the cutoff: a grade point at or below it passes.
const PassingGradePoint = 3.00

// gradeBands maps percentage floors to grade points, 3-point bands from
// 1.00 down to the 3.00 floor at 75; anything below 75 is 5.00.
var gradeBands = []struct {
	floor float64
	point float64
}{
	{97, 1.00},
	{94, 1.25},
	{91, 1.50},
	{88, 1.75},
	{85, 2.00},
	{82, 2.25},
	{79, 2.50},
	{76, 2.75},
	{75, 3.00},
}

// GradePoint maps a percentage average to the fixed grade-point scale.
func GradePoint(pct float64) float64 {
	for _, b := range gradeBands {
		if pct >= b.floor {
			return b.point
		}
	}
	return 5.00
}

// StatusFor reports passed/failed against the grade-point cutoff.
func StatusFor(gp float64) string {
	if gp <= PassingGradePoint {
		return "passed"
	}
	return "failed"
}
