package omise

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/kornthana/memberpay-backend/pkg/errors"
)

// Event is the subset of an Omise webhook payload the reconciler needs. The
// payload carries a full charge object, but only the id is trusted; current
// state is always re-fetched from the API.
type Event struct {
	Key  string    `json:"key"`
	Data EventData `json:"data"`
}

// EventData identifies the object the event refers to.
type EventData struct {
	ID     string `json:"id"`
	Object string `json:"object"`
}

// recognizedKeys are the charge lifecycle events that trigger reconciliation.
var recognizedKeys = map[string]struct{}{
	"charge.create":     {},
	"charge.complete":   {},
	"charge.successful": {},
	"charge.failed":     {},
	"charge.expire":     {},
	"charge.expired":    {},
	"charge.reverse":    {},
	"charge.reversed":   {},
}

// ParseEvent decodes and structurally validates a webhook payload.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	event.Key = strings.TrimSpace(event.Key)
	if event.Key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event key is required")
	}
	if strings.TrimSpace(event.Data.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event is missing the charge id")
	}
	return &event, nil
}

// Recognized reports whether the event key belongs to the charge lifecycle.
func (e *Event) Recognized() bool {
	_, ok := recognizedKeys[e.Key]
	return ok
}
