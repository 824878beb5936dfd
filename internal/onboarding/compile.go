package onboarding

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const closingInstruction = "Please provide personalized healthcare advice considering this profile."

// Compile renders the questionnaire as one paragraph. Every clause after the
// opener is emitted only when its field is set, and the order is fixed so the
// same record always yields the same text.
func Compile(d Data) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User Profile: %d-year-old ", d.Age)

	switch {
	case d.Profession == ProfessionMedico && d.Usage == UsagePractice:
		b.WriteString("medical professional specializing in " + d.Specialty)
		if d.ExperienceYears != nil {
			fmt.Fprintf(&b, " with %d years of experience", *d.ExperienceYears)
		}
		b.WriteString(". ")
	case d.Profession == ProfessionMedico:
		b.WriteString("medical professional using the system for personal health management. ")
	default:
		b.WriteString("individual seeking healthcare guidance. ")
	}

	if d.Gender != "" {
		b.WriteString("Gender: " + d.Gender + ". ")
	}
	if d.Height != nil && d.Weight != nil {
		if bmi, ok := BMI(*d.Height, *d.Weight); ok {
			fmt.Fprintf(&b, "Physical stats: %scm, %skg (BMI: %.1f). ", formatNumber(*d.Height), formatNumber(*d.Weight), bmi)
		}
	}
	if d.Habits != "" {
		b.WriteString("Lifestyle habits: " + d.Habits + ". ")
	}
	if d.MealsPerDay != nil {
		fmt.Fprintf(&b, "Eats %d meals per day. ", *d.MealsPerDay)
	}
	if d.WaterIntake != nil {
		fmt.Fprintf(&b, "Drinks %d glasses of water daily. ", *d.WaterIntake)
	}
	if d.ExerciseRoutine != "" {
		b.WriteString("Exercise routine: " + d.ExerciseRoutine + ". ")
	}
	if d.SleepHours != nil {
		b.WriteString("Sleeps " + formatNumber(*d.SleepHours) + " hours per night. ")
	}
	if d.StressLevel != "" {
		b.WriteString("Stress level: " + d.StressLevel + ". ")
	}
	if d.DietType != "" {
		b.WriteString("Diet type: " + d.DietType + ". ")
	}
	if d.MedicalConditions != "" {
		b.WriteString("Medical conditions: " + d.MedicalConditions + ". ")
	}

	b.WriteString(closingInstruction)
	return b.String()
}

// BMI is weight over height in metres squared. ok is false when either input
// is not positive.
func BMI(heightCm, weightKg float64) (float64, bool) {
	if heightCm <= 0 || weightKg <= 0 {
		return 0, false
	}
	meters := heightCm / 100
	return weightKg / (meters * meters), true
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
