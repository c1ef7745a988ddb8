package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
)

// MessageType is the discriminant of a bridge message.
type MessageType string

const (
	// TypeData carries a chat-assistant capture.Event.
	TypeData MessageType = "SQR_DATA"

	// TypeQueries carries a bare list of queries.
	TypeQueries MessageType = "SQR_QUERIES"

	// TypeSearchData carries search-engine data or a display update.
	TypeSearchData MessageType = "SQR_GOOGLE_DATA"

	// TypeOpenOptions asks the controller to open the settings surface.
	TypeOpenOptions MessageType = "openOptionsPage"

	// TypeCheckOverview asks the controller to check a query for an AI overview.
	TypeCheckOverview MessageType = "checkGoogleAIOverview"
)

// IsValid reports whether t is a known message type.
func (t MessageType) IsValid() bool {
	switch t {
	case TypeData, TypeQueries, TypeSearchData, TypeOpenOptions, TypeCheckOverview:
		return true
	}
	return false
}

// Message is the unit relayed from the page side to the controller side.
// Source is the sender's window token and is checked before delivery.
type Message struct {
	Type      MessageType     `json:"type"`
	Source    string          `json:"source"`
	Data      json.RawMessage `json:"data,omitempty"`
	Queries   []string        `json:"queries,omitempty"`
	Query     string          `json:"query,omitempty"`
	UseAIMode bool            `json:"useAIMode,omitempty"`
}

// NewDataMessage wraps a chat event.
func NewDataMessage(ev *capture.Event) (Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode event: %w", err)
	}
	return Message{Type: TypeData, Data: data}, nil
}

// NewSearchDataMessage wraps search-engine data or a display update.
func NewSearchDataMessage(v interface{}) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode search data: %w", err)
	}
	return Message{Type: TypeSearchData, Data: data}, nil
}

// Event decodes the payload of a TypeData message.
func (m Message) Event() (*capture.Event, error) {
	if m.Type != TypeData {
		return nil, fmt.Errorf("%w: %s carries no event", ErrWrongType, m.Type)
	}
	ev := capture.NewEvent()
	if err := json.Unmarshal(m.Data, ev); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return ev, nil
}

// SearchData decodes the payload of a TypeSearchData message that carries
// intercepted search-engine data.
func (m Message) SearchData() (*capture.SearchData, error) {
	if m.Type != TypeSearchData {
		return nil, fmt.Errorf("%w: %s carries no search data", ErrWrongType, m.Type)
	}
	var d capture.SearchData
	if err := json.Unmarshal(m.Data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode search data: %w", err)
	}
	return &d, nil
}

// SearchDisplay decodes the payload of a TypeSearchData message as a
// search display update. Plain intercepted data decodes with only Queries
// and Source set.
func (m Message) SearchDisplay() (*capture.SearchDisplay, error) {
	if m.Type != TypeSearchData {
		return nil, fmt.Errorf("%w: %s carries no search display", ErrWrongType, m.Type)
	}
	var d capture.SearchDisplay
	if err := json.Unmarshal(m.Data, &d); err != nil {
		return nil, fmt.Errorf("failed to decode search display: %w", err)
	}
	return &d, nil
}
