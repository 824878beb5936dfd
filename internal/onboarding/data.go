// Package onboarding validates the health questionnaire and compiles it into
// the profile paragraph that is sent with health questions.
package onboarding

import (
	"encoding/json"
	"errors"
	"strings"
)

type Profession string

const (
	ProfessionMedico    Profession = "medico"
	ProfessionNonMedico Profession = "non-medico"
)

type Usage string

const (
	UsagePractice Usage = "practice"
	UsagePersonal Usage = "personal"
)

// Data is the stored questionnaire. Which fields are populated depends on the
// profession and usage branch: practicing clinicians carry only the practice
// fields, everyone else only the personal health fields.
type Data struct {
	DateOfBirth string     `json:"dateOfBirth"`
	Age         int        `json:"age"`
	Profession  Profession `json:"profession"`

	Usage           Usage  `json:"usage,omitempty"`
	Specialty       string `json:"specialty,omitempty"`
	ExperienceYears *int   `json:"experienceYears,omitempty"`

	Gender            string   `json:"gender,omitempty"`
	Height            *float64 `json:"height,omitempty"`
	Weight            *float64 `json:"weight,omitempty"`
	Habits            string   `json:"habits,omitempty"`
	MealsPerDay       *int     `json:"mealsPerDay,omitempty"`
	WaterIntake       *int     `json:"waterIntake,omitempty"`
	ExerciseRoutine   string   `json:"exerciseRoutine,omitempty"`
	SleepHours        *float64 `json:"sleepHours,omitempty"`
	StressLevel       string   `json:"stressLevel,omitempty"`
	DietType          string   `json:"dietType,omitempty"`
	MedicalConditions string   `json:"medicalConditions,omitempty"`
}

func IsMedicalProfessional(d *Data) bool {
	return d != nil && d.Profession == ProfessionMedico
}

// Submission is the questionnaire as the client posts it. Height arrives
// either in centimetres or as feet plus inches.
type Submission struct {
	DateOfBirth string `json:"dateOfBirth"`
	Profession  string `json:"profession"`

	Usage           string `json:"usage"`
	Specialty       string `json:"specialty"`
	ExperienceYears *int   `json:"experienceYears"`

	Gender            string   `json:"gender"`
	Height            *float64 `json:"height"`
	HeightFeet        *float64 `json:"heightFeet"`
	HeightInches      *float64 `json:"heightInches"`
	Weight            *float64 `json:"weight"`
	Habits            TextList `json:"habits"`
	MealsPerDay       *int     `json:"mealsPerDay"`
	WaterIntake       *int     `json:"waterIntake"`
	ExerciseRoutine   TextList `json:"exerciseRoutine"`
	SleepHours        *float64 `json:"sleepHours"`
	StressLevel       string   `json:"stressLevel"`
	DietType          string   `json:"dietType"`
	MedicalConditions TextList `json:"medicalConditions"`
}

// TextList accepts either a JSON string or a list of strings; lists are
// joined with ", ".
type TextList string

func (t *TextList) UnmarshalJSON(raw []byte) error {
	if string(raw) == "null" {
		*t = ""
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		*t = TextList(strings.TrimSpace(single))
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return errors.New("expected a string or a list of strings")
	}
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	*t = TextList(strings.Join(cleaned, ", "))
	return nil
}
