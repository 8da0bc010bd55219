package model

import (
	"context"
	"strings"
	"time"
)

// Job is a single marketplace listing extracted from its detail page.
// Values are produced once per successful extraction and never mutated.
type Job struct {
	Link        string // canonical detail-page URL
	Title       string
	Description string // raw text, may be multi-line
	Features    JobFeatures
}

// JobFeatures holds the optional attributes listed on a job detail page.
// An empty string means the feature is absent.
type JobFeatures struct {
	HourlyRate      string
	Budget          string
	ExperienceLevel string
	ProjectType     string
	Duration        string
	HoursPerWeek    string
	Location        string
}

// FeatureCode is the marketplace's internal tag for a feature node (its data-cy attribute).
type FeatureCode string

const (
	CodeHoursPerWeek FeatureCode = "clock-hourly"
	CodeDuration     FeatureCode = "duration2"
	CodeExperience   FeatureCode = "expertise"
	CodeHourlyRate   FeatureCode = "clock-timelog"
	CodeBudget       FeatureCode = "fixed-price"
	CodeLocation     FeatureCode = "local"
	CodeProjectType  FeatureCode = "briefcase-outlined"
)

// featureFields maps each known feature code onto the JobFeatures field it fills.
var featureFields = map[FeatureCode]func(*JobFeatures) *string{
	CodeHoursPerWeek: func(f *JobFeatures) *string { return &f.HoursPerWeek },
	CodeDuration:     func(f *JobFeatures) *string { return &f.Duration },
	CodeExperience:   func(f *JobFeatures) *string { return &f.ExperienceLevel },
	CodeHourlyRate:   func(f *JobFeatures) *string { return &f.HourlyRate },
	CodeBudget:       func(f *JobFeatures) *string { return &f.Budget },
	CodeLocation:     func(f *JobFeatures) *string { return &f.Location },
	CodeProjectType:  func(f *JobFeatures) *string { return &f.ProjectType },
}

// KnownFeatureCode reports whether code maps onto a JobFeatures field.
func KnownFeatureCode(code FeatureCode) bool {
	_, ok := featureFields[code]
	return ok
}

// NewJobFeatures builds a JobFeatures record from a code → value mapping.
// Unknown codes are ignored.
func NewJobFeatures(values map[FeatureCode]string) JobFeatures {
	var f JobFeatures
	for code, v := range values {
		field, ok := featureFields[code]
		if !ok {
			continue
		}
		*field(&f) = strings.TrimSpace(v)
	}
	return f
}

// FeatureName identifies a rendered feature, in declared order.
type FeatureName string

const (
	FeatureHourlyRate      FeatureName = "hourly_rate"
	FeatureBudget          FeatureName = "budget"
	FeatureExperienceLevel FeatureName = "experience_level"
	FeatureProjectType     FeatureName = "project_type"
	FeatureDuration        FeatureName = "duration"
	FeatureHoursPerWeek    FeatureName = "hours_per_week"
	FeatureLocation        FeatureName = "location"
)

// Feature is a present named attribute of a job.
type Feature struct {
	Name  FeatureName
	Value string
}

// Present returns the non-empty features in declared order:
// hourly_rate, budget, experience_level, project_type, duration, hours_per_week, location.
func (f JobFeatures) Present() []Feature {
	all := []Feature{
		{FeatureHourlyRate, f.HourlyRate},
		{FeatureBudget, f.Budget},
		{FeatureExperienceLevel, f.ExperienceLevel},
		{FeatureProjectType, f.ProjectType},
		{FeatureDuration, f.Duration},
		{FeatureHoursPerWeek, f.HoursPerWeek},
		{FeatureLocation, f.Location},
	}
	present := make([]Feature, 0, len(all))
	for _, feat := range all {
		if feat.Value != "" {
			present = append(present, feat)
		}
	}
	return present
}

// Topic is a tracked search query.
type Topic struct {
	Name        string    // normalized natural key
	LastSeen    string    // last observed top-listing URL, empty before the first successful check
	Subscribers int       // populated by read models such as AllTopics
	UpdatedAt   time.Time // last time LastSeen changed (or creation time)
}

// MaxTopicBytes keeps "confirm:<topic>" within Telegram's 64-byte callback data limit.
const MaxTopicBytes = 48

// NormalizeTopic lowercases a topic name, trims it and collapses inner whitespace.
func NormalizeTopic(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// User is a chat identity.
type User struct {
	ID       int64 // chat id
	Username string
}

// PendingState is the single-slot conversational state of a user.
type PendingState string

const (
	PendingNone                 PendingState = ""
	PendingAwaitingTopic        PendingState = "awaiting_topic"
	PendingAwaitingConfirmation PendingState = "awaiting_confirmation"
)

// PendingAction is what the next free-text message of a user means.
type PendingAction struct {
	State PendingState `json:"state"`
	Topic string       `json:"topic,omitempty"` // candidate topic while awaiting confirmation
}

// PageFetcher retrieves live page text for a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// SubscriptionStore persists topics, subscriptions and each topic's last-seen listing.
// Every method is atomic with respect to the others.
type SubscriptionStore interface {
	AllTopics(ctx context.Context) ([]Topic, error)
	LastSeen(ctx context.Context, topic string) (string, error)
	SetLastSeen(ctx context.Context, topic, value string) error
	Subscribers(ctx context.Context, topic string) ([]int64, error)
	TopicExists(ctx context.Context, topic string) (bool, error)
	CreateTopic(ctx context.Context, topic string) error
	DeleteTopicIfOrphaned(ctx context.Context, topic string) (bool, error)
	// AddSubscription creates the user and topic when absent. It reports false
	// when the subscription already existed.
	AddSubscription(ctx context.Context, user User, topic string) (bool, error)
	// RemoveSubscription deletes the subscription and, in the same transaction,
	// the topic when it has no subscribers left. It reports false when there was
	// nothing to remove.
	RemoveSubscription(ctx context.Context, userID int64, topic string) (bool, error)
	RegisterUser(ctx context.Context, user User) error
	UserTopics(ctx context.Context, userID int64) ([]string, error)
	Close() error
}

// PendingStore keeps the per-user pending action.
type PendingStore interface {
	Get(ctx context.Context, userID int64) (PendingAction, error)
	Set(ctx context.Context, userID int64, action PendingAction) error
	Clear(ctx context.Context, userID int64) error
}

// Notifier delivers a rendered message to one recipient.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}
