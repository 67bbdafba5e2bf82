// Package kafka carries risk lifecycle events between the register service
// and the embedding worker.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/granite-grc/granite/pkg/errors"
)

// EventType identifies what happened to a risk.
type EventType string

const (
	EventRiskCreated EventType = "risk.created"
	EventRiskUpdated EventType = "risk.updated"
	EventRiskDeleted EventType = "risk.deleted"
)

// IsValid reports whether t is a known event type.
func (t EventType) IsValid() bool {
	switch t {
	case EventRiskCreated, EventRiskUpdated, EventRiskDeleted:
		return true
	}
	return false
}

// RiskEvent is the wire payload. Deleted events carry only the identifier;
// created and updated events carry the text fields the worker re-embeds.
type RiskEvent struct {
	Type              EventType `json:"type"`
	RiskID            string    `json:"riskId"`
	Title             string    `json:"title,omitempty"`
	ThreatDescription string    `json:"threatDescription,omitempty"`
	Description       string    `json:"description,omitempty"`
	OccurredAt        time.Time `json:"occurredAt"`
}

// Validate rejects events the worker could not act on.
func (e *RiskEvent) Validate() error {
	if !e.Type.IsValid() {
		return errors.New(errors.ErrCodeValidation, "unknown event type").WithDetail(string(e.Type))
	}
	if e.RiskID == "" {
		return errors.New(errors.ErrCodeValidation, "event missing risk id")
	}
	return nil
}

// Encode renders the event for the message value.
func (e *RiskEvent) Encode() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "event encode failed")
	}
	return raw, nil
}

// DecodeRiskEvent parses and validates a message value.
func DecodeRiskEvent(raw []byte) (*RiskEvent, error) {
	var e RiskEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "event decode failed")
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
