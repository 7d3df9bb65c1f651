package transcript

import (
	"encoding/json"
	"strings"
)

// Segment is one speaker-tagged span of speech produced by an external
// speech pipeline.
type Segment struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Speaker   string  `json:"speaker"`
	SpeakerID int     `json:"speaker_id"`
	IsUser    bool    `json:"is_user"`
	PersonID  *string `json:"person_id,omitempty"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

// UnmarshalJSON accepts both snake_case and camelCase field spellings, since
// capture devices disagree on the casing of speaker fields.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID             string  `json:"id"`
		Text           string  `json:"text"`
		Speaker        string  `json:"speaker"`
		SpeakerID      *int    `json:"speaker_id"`
		SpeakerIDCamel *int    `json:"speakerId"`
		IsUser         *bool   `json:"is_user"`
		IsUserCamel    *bool   `json:"isUser"`
		PersonID       *string `json:"person_id"`
		PersonIDCamel  *string `json:"personId"`
		Start          float64 `json:"start"`
		End            float64 `json:"end"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Segment{
		ID:       raw.ID,
		Text:     raw.Text,
		Speaker:  raw.Speaker,
		PersonID: raw.PersonID,
		Start:    raw.Start,
		End:      raw.End,
	}
	switch {
	case raw.SpeakerID != nil:
		s.SpeakerID = *raw.SpeakerID
	case raw.SpeakerIDCamel != nil:
		s.SpeakerID = *raw.SpeakerIDCamel
	}
	switch {
	case raw.IsUser != nil:
		s.IsUser = *raw.IsUser
	case raw.IsUserCamel != nil:
		s.IsUser = *raw.IsUserCamel
	}
	if s.PersonID == nil {
		s.PersonID = raw.PersonIDCamel
	}
	return nil
}

// Extract joins the text of every user-attributed segment, in order, with a
// single space. It returns "" when no segment belongs to the user.
func Extract(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.IsUser {
			parts = append(parts, seg.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
