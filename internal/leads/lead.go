// Package leads owns the three lead views and the invite-send
// reconciliation logic.
package leads

import (
	"encoding/json"
	"strconv"
)

// ConnectionStatus is the outreach state of a lead.
type ConnectionStatus string

const (
	StatusWaitingForReview ConnectionStatus = "waiting_for_review"
	StatusSending          ConnectionStatus = "sending"
	StatusSent             ConnectionStatus = "sent"
	StatusNotSent          ConnectionStatus = "not_sent"
)

// transitions is the explicit state machine for ConnectionStatus.
// waiting_for_review -> sending -> {sent, not_sent}; a failed send
// (not_sent) may be retried.
var transitions = map[ConnectionStatus][]ConnectionStatus{
	StatusWaitingForReview: {StatusSending},
	StatusNotSent:          {StatusSending},
	StatusSending:          {StatusSent, StatusNotSent},
}

// CanTransition reports whether moving from s to next is a valid
// transition. A lead with no recorded status may start sending.
func (s ConnectionStatus) CanTransition(next ConnectionStatus) bool {
	if s == "" {
		return next == StatusSending
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Lead is a prospect record. Backends attach arbitrary per-source
// fields to leads, so unknown keys are preserved in Extra rather than
// dropped.
type Lead struct {
	ID                      string           `json:"id"`
	FirstName               string           `json:"firstName,omitempty"`
	LastName                string           `json:"lastName,omitempty"`
	Company                 string           `json:"company,omitempty"`
	Title                   string           `json:"title,omitempty"`
	LinkedinProfileImageURL string           `json:"linkedinProfileImageUrl,omitempty"`
	Location                string           `json:"location,omitempty"`
	Industry                string           `json:"industry,omitempty"`
	ConnectionDegree        string           `json:"connectionDegree,omitempty"`
	AIStatus                string           `json:"aiStatus,omitempty"`
	Score                   float64          `json:"score,omitempty"`
	ScrapedAt               string           `json:"scrapedAt,omitempty"`
	PersonalizedMessage     string           `json:"personalizedMessage,omitempty"`
	ConnectionStatus        ConnectionStatus `json:"connectionStatus,omitempty"`
	ConnectionSent          *bool            `json:"connectionSent,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Name returns the lead's display name.
func (l Lead) Name() string {
	switch {
	case l.FirstName != "" && l.LastName != "":
		return l.FirstName + " " + l.LastName
	case l.FirstName != "":
		return l.FirstName
	default:
		return l.LastName
	}
}

// knownLeadKeys are the JSON keys mapped to struct fields; everything
// else lands in Extra.
var knownLeadKeys = map[string]struct{}{
	"id": {}, "firstName": {}, "lastName": {}, "company": {}, "title": {},
	"linkedinProfileImageUrl": {}, "location": {}, "industry": {},
	"connectionDegree": {}, "aiStatus": {}, "score": {}, "scrapedAt": {},
	"personalizedMessage": {}, "connectionStatus": {}, "connectionSent": {},
}

type leadAlias Lead

func (l *Lead) UnmarshalJSON(data []byte) error {
	var a leadAlias
	if err := json.Unmarshal(data, &a); err != nil {
		// Some backends emit numeric lead ids; retry with id coerced
		// to a string before giving up.
		var probe map[string]json.RawMessage
		if perr := json.Unmarshal(data, &probe); perr != nil {
			return err
		}
		if raw, ok := probe["id"]; ok {
			var n json.Number
			if nerr := json.Unmarshal(raw, &n); nerr == nil {
				probe["id"], _ = json.Marshal(n.String())
				patched, _ := json.Marshal(probe)
				if aerr := json.Unmarshal(patched, &a); aerr == nil {
					*l = Lead(a)
					l.captureExtra(probe)
					return nil
				}
			}
		}
		return err
	}
	*l = Lead(a)

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err == nil {
		l.captureExtra(all)
	}
	return nil
}

func (l *Lead) captureExtra(all map[string]json.RawMessage) {
	for k := range knownLeadKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		l.Extra = all
	}
}

func (l Lead) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(leadAlias(l))
	if err != nil {
		return nil, err
	}
	if len(l.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range l.Extra {
		if _, known := knownLeadKeys[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// ScoreString renders the AI score for display; an unset score is blank.
func (l Lead) ScoreString() string {
	if l.Score == 0 {
		return ""
	}
	return strconv.FormatFloat(l.Score, 'f', -1, 64)
}
