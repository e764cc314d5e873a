package wanikache

import (
	"encoding/json"
)

// singleEnvelope is the wire shape of single-object endpoints (user, summary,
// one subject).
type singleEnvelope struct {
	ID            int64           `json:"id,omitempty"`
	Object        string          `json:"object"`
	URL           string          `json:"url"`
	DataUpdatedAt string          `json:"data_updated_at"`
	Data          json.RawMessage `json:"data"`
}

// User is the account profile, including the subscription level cap applied
// when filtering subjects.
type User struct {
	Object        string   `json:"object"`
	URL           string   `json:"url"`
	DataUpdatedAt string   `json:"data_updated_at"`
	Data          UserData `json:"data"`
}

type UserData struct {
	ID                      string        `json:"id"`
	Username                string        `json:"username"`
	Level                   int           `json:"level"`
	ProfileURL              string        `json:"profile_url"`
	StartedAt               string        `json:"started_at"`
	CurrentVacationStartedAt string       `json:"current_vacation_started_at,omitempty"`
	Subscription            *Subscription `json:"subscription,omitempty"`
}

type Subscription struct {
	Active          bool   `json:"active"`
	Type            string `json:"type"`
	MaxLevelGranted int    `json:"max_level_granted"`
	PeriodEndsAt    string `json:"period_ends_at,omitempty"`
}

// Subject is one radical, kanji or vocabulary record.
type Subject struct {
	ID            int64       `json:"id"`
	Object        string      `json:"object"`
	URL           string      `json:"url,omitempty"`
	DataUpdatedAt string      `json:"data_updated_at,omitempty"`
	Data          SubjectData `json:"data"`
}

type SubjectData struct {
	CreatedAt                string    `json:"created_at,omitempty"`
	Level                    int       `json:"level"`
	Slug                     string    `json:"slug,omitempty"`
	HiddenAt                 string    `json:"hidden_at,omitempty"`
	DocumentURL              string    `json:"document_url,omitempty"`
	Characters               string    `json:"characters,omitempty"`
	Meanings                 []Meaning `json:"meanings,omitempty"`
	Readings                 []Reading `json:"readings,omitempty"`
	ComponentSubjectIDs      []int64   `json:"component_subject_ids,omitempty"`
	AmalgamationSubjectIDs   []int64   `json:"amalgamation_subject_ids,omitempty"`
	VisuallySimilarSubjectIDs []int64  `json:"visually_similar_subject_ids,omitempty"`
	MeaningMnemonic          string    `json:"meaning_mnemonic,omitempty"`
	MeaningHint              string    `json:"meaning_hint,omitempty"`
	ReadingMnemonic          string    `json:"reading_mnemonic,omitempty"`
	ReadingHint              string    `json:"reading_hint,omitempty"`
	ContextSentences         []ContextSentence `json:"context_sentences,omitempty"`
	LessonPosition           int       `json:"lesson_position,omitempty"`
	SpacedRepetitionSystemID int64     `json:"spaced_repetition_system_id,omitempty"`
}

type Meaning struct {
	Meaning        string `json:"meaning"`
	Primary        bool   `json:"primary"`
	AcceptedAnswer bool   `json:"accepted_answer"`
}

type Reading struct {
	Type           string `json:"type,omitempty"`
	Reading        string `json:"reading"`
	Primary        bool   `json:"primary"`
	AcceptedAnswer bool   `json:"accepted_answer"`
}

type ContextSentence struct {
	En string `json:"en"`
	Ja string `json:"ja"`
}

// Assignment tracks one subject's progress through the SRS stages.
type Assignment struct {
	ID            int64          `json:"id"`
	Object        string         `json:"object"`
	URL           string         `json:"url,omitempty"`
	DataUpdatedAt string         `json:"data_updated_at,omitempty"`
	Data          AssignmentData `json:"data"`
}

type AssignmentData struct {
	CreatedAt     string `json:"created_at,omitempty"`
	SubjectID     int64  `json:"subject_id"`
	SubjectType   string `json:"subject_type"`
	SRSStage      int    `json:"srs_stage"`
	UnlockedAt    string `json:"unlocked_at,omitempty"`
	StartedAt     string `json:"started_at,omitempty"`
	PassedAt      string `json:"passed_at,omitempty"`
	BurnedAt      string `json:"burned_at,omitempty"`
	AvailableAt   string `json:"available_at,omitempty"`
	ResurrectedAt string `json:"resurrected_at,omitempty"`
	Hidden        bool   `json:"hidden"`
}

// ReviewStatistic aggregates answer accuracy for one subject.
type ReviewStatistic struct {
	ID            int64               `json:"id"`
	Object        string              `json:"object"`
	URL           string              `json:"url,omitempty"`
	DataUpdatedAt string              `json:"data_updated_at,omitempty"`
	Data          ReviewStatisticData `json:"data"`
}

type ReviewStatisticData struct {
	CreatedAt             string `json:"created_at,omitempty"`
	SubjectID             int64  `json:"subject_id"`
	SubjectType           string `json:"subject_type"`
	MeaningCorrect        int    `json:"meaning_correct"`
	MeaningIncorrect      int    `json:"meaning_incorrect"`
	MeaningMaxStreak      int    `json:"meaning_max_streak"`
	MeaningCurrentStreak  int    `json:"meaning_current_streak"`
	ReadingCorrect        int    `json:"reading_correct"`
	ReadingIncorrect      int    `json:"reading_incorrect"`
	ReadingMaxStreak      int    `json:"reading_max_streak"`
	ReadingCurrentStreak  int    `json:"reading_current_streak"`
	PercentageCorrect     int    `json:"percentage_correct"`
	Hidden                bool   `json:"hidden"`
}

// LevelProgression records the timestamps of one level's lifecycle.
type LevelProgression struct {
	ID            int64                `json:"id"`
	Object        string               `json:"object"`
	URL           string               `json:"url,omitempty"`
	DataUpdatedAt string               `json:"data_updated_at,omitempty"`
	Data          LevelProgressionData `json:"data"`
}

type LevelProgressionData struct {
	CreatedAt   string `json:"created_at,omitempty"`
	Level       int    `json:"level"`
	UnlockedAt  string `json:"unlocked_at,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	PassedAt    string `json:"passed_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
	AbandonedAt string `json:"abandoned_at,omitempty"`
}

// SpacedRepetitionSystem defines one SRS stage ladder.
type SpacedRepetitionSystem struct {
	ID            int64    `json:"id"`
	Object        string   `json:"object"`
	URL           string   `json:"url,omitempty"`
	DataUpdatedAt string   `json:"data_updated_at,omitempty"`
	Data          SRSData  `json:"data"`
}

type SRSData struct {
	CreatedAt             string     `json:"created_at,omitempty"`
	Name                  string     `json:"name"`
	Description           string     `json:"description,omitempty"`
	UnlockingStagePosition int       `json:"unlocking_stage_position"`
	StartingStagePosition  int       `json:"starting_stage_position"`
	PassingStagePosition   int       `json:"passing_stage_position"`
	BurningStagePosition   int       `json:"burning_stage_position"`
	Stages                 []SRSStage `json:"stages,omitempty"`
}

type SRSStage struct {
	Interval     *int64 `json:"interval"`
	Position     int    `json:"position"`
	IntervalUnit string `json:"interval_unit,omitempty"`
}

// Review is one immutable historical review record.
type Review struct {
	ID            int64      `json:"id"`
	Object        string     `json:"object"`
	URL           string     `json:"url,omitempty"`
	DataUpdatedAt string     `json:"data_updated_at,omitempty"`
	Data          ReviewData `json:"data"`
}

type ReviewData struct {
	CreatedAt               string `json:"created_at,omitempty"`
	AssignmentID            int64  `json:"assignment_id"`
	SubjectID               int64  `json:"subject_id"`
	SpacedRepetitionSystemID int64 `json:"spaced_repetition_system_id,omitempty"`
	StartingSRSStage        int    `json:"starting_srs_stage"`
	EndingSRSStage          int    `json:"ending_srs_stage"`
	IncorrectMeaningAnswers int    `json:"incorrect_meaning_answers"`
	IncorrectReadingAnswers int    `json:"incorrect_reading_answers"`
}

// Summary is the periodic lesson/review availability report.
type Summary struct {
	Object        string      `json:"object"`
	URL           string      `json:"url,omitempty"`
	DataUpdatedAt string      `json:"data_updated_at,omitempty"`
	Data          SummaryData `json:"data"`
}

type SummaryData struct {
	Lessons       []SummaryWindow `json:"lessons,omitempty"`
	NextReviewsAt string          `json:"next_reviews_at,omitempty"`
	Reviews       []SummaryWindow `json:"reviews,omitempty"`
}

type SummaryWindow struct {
	AvailableAt string  `json:"available_at"`
	SubjectIDs  []int64 `json:"subject_ids"`
}

// unmarshalItems decodes each raw collection item into its concrete record
// type.
func unmarshalItems[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, &ClientError{
				Type:    ErrorTypeAPI,
				Message: "decoding resource record failed",
				Cause:   err,
			}
		}
		out = append(out, v)
	}
	return out, nil
}
