package wanikache

import (
	"encoding/json"
)

// defaultMaxLevelGranted caps subject levels when the user's subscription is
// unknown.
const defaultMaxLevelGranted = 3

// trimSubjectCollection reduces a subject collection payload before it is
// cached: mnemonics, hints and context sentences are dropped, and meanings /
// readings are cut down to their primary entries. Identifiers, levels and
// dependency-graph links survive intact. The untrimmed payload is what the
// caller receives; only the cached copy shrinks.
func trimSubjectCollection(body []byte) []byte {
	var envelope collectionEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}

	var items []json.RawMessage
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &items); err != nil {
			return body
		}
	}

	trimmed := make([]Subject, 0, len(items))
	for _, item := range items {
		var subject Subject
		if err := json.Unmarshal(item, &subject); err != nil {
			return body
		}
		trimmed = append(trimmed, trimSubject(subject))
	}

	out := struct {
		Object        string    `json:"object"`
		DataUpdatedAt string    `json:"data_updated_at,omitempty"`
		Pages         *pageInfo `json:"pages,omitempty"`
		Data          []Subject `json:"data"`
	}{
		Object:        envelope.Object,
		DataUpdatedAt: envelope.DataUpdatedAt,
		Pages:         envelope.Pages,
		Data:          trimmed,
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return body
	}
	return raw
}

func trimSubject(s Subject) Subject {
	s.URL = ""
	s.Data.MeaningMnemonic = ""
	s.Data.MeaningHint = ""
	s.Data.ReadingMnemonic = ""
	s.Data.ReadingHint = ""
	s.Data.ContextSentences = nil
	s.Data.Meanings = primaryMeanings(s.Data.Meanings)
	s.Data.Readings = primaryReadings(s.Data.Readings)
	return s
}

func primaryMeanings(meanings []Meaning) []Meaning {
	if len(meanings) <= 1 {
		return meanings
	}
	for _, m := range meanings {
		if m.Primary {
			return []Meaning{m}
		}
	}
	return meanings[:1]
}

func primaryReadings(readings []Reading) []Reading {
	if len(readings) <= 1 {
		return readings
	}
	for _, r := range readings {
		if r.Primary {
			return []Reading{r}
		}
	}
	return readings[:1]
}

// filterBySubscription drops subjects whose level exceeds the user's granted
// maximum. An unknown subscription falls back to the free-tier cap.
func filterBySubscription(subjects []Subject, user *User) []Subject {
	maxLevel := defaultMaxLevelGranted
	if user != nil && user.Data.Subscription != nil && user.Data.Subscription.MaxLevelGranted > 0 {
		maxLevel = user.Data.Subscription.MaxLevelGranted
	}

	out := make([]Subject, 0, len(subjects))
	for _, s := range subjects {
		if s.Data.Level <= maxLevel {
			out = append(out, s)
		}
	}
	return out
}
