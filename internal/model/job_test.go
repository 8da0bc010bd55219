package model

import "testing"

func TestNewJobFeatures_MapsCodesToFields(t *testing.T) {
	f := NewJobFeatures(map[FeatureCode]string{
		CodeHourlyRate: "$20-$35",
		CodeExperience: " Expert ",
		"unknown-icon": "ignored",
	})

	if f.HourlyRate != "$20-$35" {
		t.Errorf("HourlyRate = %q, want $20-$35", f.HourlyRate)
	}
	if f.ExperienceLevel != "Expert" {
		t.Errorf("ExperienceLevel = %q, want Expert", f.ExperienceLevel)
	}
	if f.Budget != "" || f.Location != "" || f.Duration != "" || f.HoursPerWeek != "" || f.ProjectType != "" {
		t.Errorf("unexpected fields set: %+v", f)
	}
}

func TestNewJobFeatures_EveryKnownCode(t *testing.T) {
	f := NewJobFeatures(map[FeatureCode]string{
		CodeHoursPerWeek: "Less than 30 hrs/week",
		CodeDuration:     "1 to 3 months",
		CodeExperience:   "Intermediate",
		CodeHourlyRate:   "$10-$20",
		CodeBudget:       "$500",
		CodeLocation:     "Worldwide",
		CodeProjectType:  "One-time project",
	})

	want := JobFeatures{
		HourlyRate:      "$10-$20",
		Budget:          "$500",
		ExperienceLevel: "Intermediate",
		ProjectType:     "One-time project",
		Duration:        "1 to 3 months",
		HoursPerWeek:    "Less than 30 hrs/week",
		Location:        "Worldwide",
	}
	if f != want {
		t.Errorf("features = %+v, want %+v", f, want)
	}
}

func TestPresent_DeclaredOrderAndOnlyPresent(t *testing.T) {
	f := JobFeatures{Location: "Worldwide", ExperienceLevel: "Expert", HourlyRate: "$20-$35"}

	got := f.Present()
	want := []FeatureName{FeatureHourlyRate, FeatureExperienceLevel, FeatureLocation}
	if len(got) != len(want) {
		t.Fatalf("Present() len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Name != want[i] {
			t.Errorf("Present()[%d] = %s, want %s", i, got[i].Name, want[i])
		}
	}
}

func TestNormalizeTopic(t *testing.T) {
	cases := map[string]string{
		"  Telegram Bot ":    "telegram bot",
		"GO\tdeveloper":      "go developer",
		"react   native  ":   "react native",
		"":                   "",
	}
	for in, want := range cases {
		if got := NormalizeTopic(in); got != want {
			t.Errorf("NormalizeTopic(%q) = %q, want %q", in, got, want)
		}
	}
}
