package wanikache

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSubjectCollection(t *testing.T) []byte {
	t.Helper()
	subjects := []Subject{
		{
			ID:     440,
			Object: "kanji",
			URL:    "https://api.wanikani.com/v2/subjects/440",
			Data: SubjectData{
				Level:      2,
				Slug:       "一",
				Characters: "一",
				Meanings: []Meaning{
					{Meaning: "One", Primary: true, AcceptedAnswer: true},
					{Meaning: "First", Primary: false, AcceptedAnswer: true},
				},
				Readings: []Reading{
					{Type: "onyomi", Reading: "いち", Primary: true, AcceptedAnswer: true},
					{Type: "kunyomi", Reading: "ひと", Primary: false, AcceptedAnswer: false},
				},
				ComponentSubjectIDs:    []int64{1},
				AmalgamationSubjectIDs: []int64{2468},
				MeaningMnemonic:        "A very long story about the number one.",
				ReadingMnemonic:        "Another long story about pronunciation.",
				MeaningHint:            "Think ground.",
				ContextSentences:       []ContextSentence{{En: "One thing.", Ja: "一つ。"}},
			},
		},
	}
	raw, err := json.Marshal(map[string]interface{}{
		"object":          "collection",
		"data_updated_at": "2026-03-01T00:00:00.000000Z",
		"pages":           map[string]interface{}{"per_page": 500},
		"data":            subjects,
	})
	require.NoError(t, err)
	return raw
}

func TestTrimSubjectCollectionDropsStudyMaterial(t *testing.T) {
	trimmed := trimSubjectCollection(sampleSubjectCollection(t))

	var envelope collectionEnvelope
	require.NoError(t, json.Unmarshal(trimmed, &envelope))
	assert.Equal(t, "collection", envelope.Object)
	assert.Equal(t, "2026-03-01T00:00:00.000000Z", envelope.DataUpdatedAt)

	var subjects []Subject
	require.NoError(t, json.Unmarshal(envelope.Data, &subjects))
	require.Len(t, subjects, 1)
	s := subjects[0]

	// Essentials survive.
	assert.Equal(t, int64(440), s.ID)
	assert.Equal(t, "kanji", s.Object)
	assert.Equal(t, 2, s.Data.Level)
	assert.Equal(t, "一", s.Data.Characters)
	assert.Equal(t, []int64{1}, s.Data.ComponentSubjectIDs)
	assert.Equal(t, []int64{2468}, s.Data.AmalgamationSubjectIDs)

	// Study material is gone.
	assert.Empty(t, s.URL)
	assert.Empty(t, s.Data.MeaningMnemonic)
	assert.Empty(t, s.Data.ReadingMnemonic)
	assert.Empty(t, s.Data.MeaningHint)
	assert.Empty(t, s.Data.ContextSentences)

	// Meanings and readings collapse to the primary entry.
	require.Len(t, s.Data.Meanings, 1)
	assert.Equal(t, "One", s.Data.Meanings[0].Meaning)
	require.Len(t, s.Data.Readings, 1)
	assert.Equal(t, "いち", s.Data.Readings[0].Reading)
}

func TestTrimSubjectCollectionShrinksPayload(t *testing.T) {
	body := sampleSubjectCollection(t)
	trimmed := trimSubjectCollection(body)
	assert.Less(t, len(trimmed), len(body))
}

func TestTrimSubjectCollectionPassesThroughMalformedBody(t *testing.T) {
	body := []byte(`{"object": "collection", "data": "not-an-array"}`)
	assert.Equal(t, body, trimSubjectCollection(body))

	body = []byte(`garbage`)
	assert.Equal(t, body, trimSubjectCollection(body))
}

func TestPrimaryMeaningsKeepsSingleEntryUntouched(t *testing.T) {
	one := []Meaning{{Meaning: "Only", Primary: false}}
	assert.Equal(t, one, primaryMeanings(one))

	// Without a primary entry, the first survives.
	several := []Meaning{{Meaning: "A"}, {Meaning: "B"}}
	got := primaryMeanings(several)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Meaning)
}

func TestFilterBySubscription(t *testing.T) {
	subjects := []Subject{
		{ID: 1, Data: SubjectData{Level: 1}},
		{ID: 2, Data: SubjectData{Level: 3}},
		{ID: 3, Data: SubjectData{Level: 4}},
		{ID: 4, Data: SubjectData{Level: 60}},
	}

	paid := &User{Data: UserData{Subscription: &Subscription{Active: true, MaxLevelGranted: 60}}}
	assert.Len(t, filterBySubscription(subjects, paid), 4)

	free := &User{Data: UserData{Subscription: &Subscription{Active: false, MaxLevelGranted: 3}}}
	got := filterBySubscription(subjects, free)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
}

func TestFilterBySubscriptionUnknownUserFallsBackToFreeCap(t *testing.T) {
	subjects := []Subject{
		{ID: 1, Data: SubjectData{Level: 3}},
		{ID: 2, Data: SubjectData{Level: 4}},
	}

	got := filterBySubscription(subjects, nil)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	noSub := &User{Data: UserData{Level: 10}}
	got = filterBySubscription(subjects, noSub)
	require.Len(t, got, 1)
}
