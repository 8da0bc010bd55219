package formatter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/amishk599/upwatch/internal/model"
)

func sampleJob() model.Job {
	return model.Job{
		Link:        "https://www.upwork.com/jobs/~01abc",
		Title:       "Build a Telegram bot",
		Description: "We need a bot.\r\n\r\n\r\nIt should notify users.",
		Features: model.NewJobFeatures(map[model.FeatureCode]string{
			model.CodeHourlyRate: "$20.00-$35.00",
			model.CodeExperience: "Expert",
		}),
	}
}

func TestFormatNotification_Layout(t *testing.T) {
	got := FormatNotification(sampleJob(), "golang")

	want := "🔎 Topic: <b>golang</b>\n" +
		"📢 <b>Build a Telegram bot</b>\n" +
		"📝 We need a bot.\nIt should notify users.\n" +
		"⏳ Hourly Rate: $20.00-$35.00\n" +
		"🎓 Experience Level: Expert\n" +
		"\n🔗 <a href=\"https://www.upwork.com/jobs/~01abc\">https://www.upwork.com/jobs/~01abc</a>"

	if got != want {
		t.Errorf("FormatNotification mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatNotification_NoTopicLine(t *testing.T) {
	got := FormatNotification(sampleJob(), "")
	if strings.Contains(got, "Topic:") {
		t.Errorf("expected no topic line, got %q", got)
	}
	if !strings.HasPrefix(got, "📢 ") {
		t.Errorf("expected message to start with the title line, got %q", got)
	}
}

func TestFormatNotification_FeatureOrder(t *testing.T) {
	job := sampleJob()
	job.Features = model.JobFeatures{
		Location:        "Worldwide",
		HoursPerWeek:    "Less than 30 hrs/week",
		Duration:        "1 to 3 months",
		ProjectType:     "One-time project",
		ExperienceLevel: "Intermediate",
		Budget:          "$500.00",
		HourlyRate:      "$10-$20",
	}
	got := FormatNotification(job, "")

	labels := []string{"Hourly Rate", "Budget", "Experience Level", "Project Type", "Duration", "Hours Per Week", "Location"}
	last := -1
	for _, l := range labels {
		idx := strings.Index(got, l+":")
		if idx < 0 {
			t.Fatalf("missing feature %q in %q", l, got)
		}
		if idx < last {
			t.Errorf("feature %q out of order", l)
		}
		last = idx
	}
}

func TestFormatNotification_Deterministic(t *testing.T) {
	job := sampleJob()
	if FormatNotification(job, "go") != FormatNotification(job, "go") {
		t.Error("same input produced different output")
	}
}

func TestFormatNotification_EscapesHTML(t *testing.T) {
	job := sampleJob()
	job.Title = "Fix <script> & stuff"
	got := FormatNotification(job, "a<b")

	if strings.Contains(got, "<script>") {
		t.Errorf("title not escaped: %q", got)
	}
	if !strings.Contains(got, "Fix &lt;script&gt; &amp; stuff") {
		t.Errorf("expected escaped title, got %q", got)
	}
	if !strings.Contains(got, "<b>a&lt;b</b>") {
		t.Errorf("expected escaped topic, got %q", got)
	}
}

func TestDescription_TruncationLaw(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		truncated bool
	}{
		{"short", 10, false},
		{"exactly 300", 300, false},
		{"301", 301, true},
		{"long", 1000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := strings.Repeat("é", tt.length)
			got := Description(in)

			if n := utf8.RuneCountInString(got); n > maxDescriptionRunes {
				t.Errorf("len = %d, want <= %d", n, maxDescriptionRunes)
			}
			if !tt.truncated && got != in {
				t.Errorf("expected text unchanged for length %d", tt.length)
			}
			if tt.truncated {
				if !strings.HasSuffix(got, "...") {
					t.Errorf("expected ... suffix, got %q", got[len(got)-6:])
				}
				if n := utf8.RuneCountInString(got); n != 300 {
					t.Errorf("truncated len = %d, want 300", n)
				}
			}
		})
	}
}

func TestDescription_CollapsesNewlines(t *testing.T) {
	got := Description("  a\r\n\r\nb\n\n\nc  ")
	if got != "a\nb\nc" {
		t.Errorf("Description = %q, want %q", got, "a\nb\nc")
	}
}
