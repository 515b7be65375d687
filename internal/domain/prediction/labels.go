package prediction

// Output layout of the 18-way classifier head. The order is fixed by the
// weights the model was trained with and must not be re-derived.
const (
	raceOffset   = 0
	raceCount    = 7
	genderOffset = raceOffset + raceCount
	genderCount  = 2
	ageOffset    = genderOffset + genderCount
	ageCount     = 9

	// OutputSize is the number of raw scores the classifier emits.
	OutputSize = ageOffset + ageCount
)

// RaceLabels maps race output indices to labels.
var RaceLabels = [raceCount]string{
	"White",
	"Black",
	"Hispanic",
	"East Asian",
	"Southeast Asian",
	"Indian",
	"Middle Eastern",
}

// GenderLabels maps gender output indices to labels.
var GenderLabels = [genderCount]string{
	"Male",
	"Female",
}

// AgeLabels maps age output indices to bucket labels.
var AgeLabels = [ageCount]string{
	"0-2",
	"3-9",
	"10-19",
	"20-29",
	"30-39",
	"40-49",
	"50-59",
	"60-69",
	"70+",
}
