package onboarding

import (
	"math"
	"strings"
	"time"
)

const (
	maxAgeYears   = 130
	cmPerInch     = 2.54
	inchesPerFoot = 12
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Normalize validates a submission and keeps only the fields of the branch it
// selects. Age is derived from the date of birth as of now.
func Normalize(sub Submission, now time.Time) (Data, error) {
	dobRaw := strings.TrimSpace(sub.DateOfBirth)
	if dobRaw == "" {
		return Data{}, invalid("dateOfBirth", "is required")
	}
	dob, err := time.Parse("2006-01-02", dobRaw)
	if err != nil {
		return Data{}, invalid("dateOfBirth", "must be formatted YYYY-MM-DD")
	}
	if dob.After(now) {
		return Data{}, invalid("dateOfBirth", "must not be in the future")
	}
	age := AgeOn(dob, now)
	if age > maxAgeYears {
		return Data{}, invalid("dateOfBirth", "is out of range")
	}

	data := Data{
		DateOfBirth: dob.Format("2006-01-02"),
		Age:         age,
		Profession:  Profession(strings.ToLower(strings.TrimSpace(sub.Profession))),
	}

	switch data.Profession {
	case ProfessionMedico:
		data.Usage = Usage(strings.ToLower(strings.TrimSpace(sub.Usage)))
		switch data.Usage {
		case UsagePractice:
			return normalizePractice(data, sub)
		case UsagePersonal:
			return normalizePersonal(data, sub)
		default:
			return Data{}, invalid("usage", "must be one of: practice, personal")
		}
	case ProfessionNonMedico:
		return normalizePersonal(data, sub)
	default:
		return Data{}, invalid("profession", "must be one of: medico, non-medico")
	}
}

func normalizePractice(data Data, sub Submission) (Data, error) {
	data.Specialty = strings.TrimSpace(sub.Specialty)
	if data.Specialty == "" {
		return Data{}, invalid("specialty", "is required for practicing professionals")
	}
	if sub.ExperienceYears != nil {
		if *sub.ExperienceYears < 0 || *sub.ExperienceYears > data.Age {
			return Data{}, invalid("experienceYears", "is out of range")
		}
		years := *sub.ExperienceYears
		data.ExperienceYears = &years
	}
	return data, nil
}

func normalizePersonal(data Data, sub Submission) (Data, error) {
	data.Gender = strings.TrimSpace(sub.Gender)

	height, err := heightCm(sub)
	if err != nil {
		return Data{}, err
	}
	data.Height = height

	if sub.Weight != nil {
		if *sub.Weight <= 0 || *sub.Weight > 500 {
			return Data{}, invalid("weight", "must be between 0 and 500 kg")
		}
		weight := *sub.Weight
		data.Weight = &weight
	}
	if sub.MealsPerDay != nil {
		if *sub.MealsPerDay < 0 || *sub.MealsPerDay > 12 {
			return Data{}, invalid("mealsPerDay", "is out of range")
		}
		meals := *sub.MealsPerDay
		data.MealsPerDay = &meals
	}
	if sub.WaterIntake != nil {
		if *sub.WaterIntake < 0 || *sub.WaterIntake > 40 {
			return Data{}, invalid("waterIntake", "is out of range")
		}
		water := *sub.WaterIntake
		data.WaterIntake = &water
	}
	if sub.SleepHours != nil {
		if *sub.SleepHours < 0 || *sub.SleepHours > 24 {
			return Data{}, invalid("sleepHours", "must be between 0 and 24")
		}
		sleep := *sub.SleepHours
		data.SleepHours = &sleep
	}

	data.Habits = string(sub.Habits)
	data.ExerciseRoutine = string(sub.ExerciseRoutine)
	data.StressLevel = strings.TrimSpace(sub.StressLevel)
	data.DietType = strings.TrimSpace(sub.DietType)
	data.MedicalConditions = string(sub.MedicalConditions)
	return data, nil
}

// heightCm prefers feet and inches when both styles are posted.
func heightCm(sub Submission) (*float64, error) {
	if sub.HeightFeet != nil {
		inches := 0.0
		if sub.HeightInches != nil {
			inches = *sub.HeightInches
		}
		if *sub.HeightFeet < 0 || inches < 0 || inches >= inchesPerFoot {
			return nil, invalid("heightFeet", "feet and inches are out of range")
		}
		cm := math.Round((*sub.HeightFeet*inchesPerFoot + inches) * cmPerInch)
		if cm <= 0 {
			return nil, invalid("heightFeet", "must be positive")
		}
		return &cm, nil
	}
	if sub.Height != nil {
		if *sub.Height <= 0 || *sub.Height > 300 {
			return nil, invalid("height", "must be between 0 and 300 cm")
		}
		cm := *sub.Height
		return &cm, nil
	}
	return nil, nil
}

// AgeOn returns whole years elapsed between dob and now.
func AgeOn(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
