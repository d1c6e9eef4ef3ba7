package observer

import "fmt"

// Stratification age groups, matching the standard under-five bands.
const (
	AgeGroupEarlyNeonatal = "early_neonatal"
	AgeGroupLateNeonatal  = "late_neonatal"
	AgeGroupPostNeonatal  = "post_neonatal"
	AgeGroupOneToFour     = "1_to_4"
)

// AgeGroups lists the stratification age groups youngest first.
var AgeGroups = []string{
	AgeGroupEarlyNeonatal,
	AgeGroupLateNeonatal,
	AgeGroupPostNeonatal,
	AgeGroupOneToFour,
}

// AgeGroupOf classifies an age in years into its stratification group.
// Bands are closed on the left and open on the right; ages outside the
// modeled under-five range are a data error.
func AgeGroupOf(ageYears float64) (string, error) {
	switch {
	case ageYears < 0:
		return "", fmt.Errorf("observer: negative age %v", ageYears)
	case ageYears < 7.0/365.25:
		return AgeGroupEarlyNeonatal, nil
	case ageYears < 28.0/365.25:
		return AgeGroupLateNeonatal, nil
	case ageYears < 1:
		return AgeGroupPostNeonatal, nil
	case ageYears < 5:
		return AgeGroupOneToFour, nil
	default:
		return "", fmt.Errorf("observer: age %v outside the modeled range", ageYears)
	}
}
