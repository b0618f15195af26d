package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an identifier exactly as the modem reported it. An id that
// arrived as a JSON number is written back as one; every other id is
// written as a string, so "007" stays "007".
type ID struct {
	raw     string
	numeric bool
}

// NumericID wraps the literal text of a JSON number. Text that is not a
// valid number is kept as a string id.
func NumericID(raw string) ID {
	if _, err := strconv.ParseFloat(raw, 64); err != nil || !json.Valid([]byte(raw)) {
		return TextID(raw)
	}
	return ID{raw: raw, numeric: true}
}

func TextID(s string) ID {
	return ID{raw: s}
}

func (id ID) IsZero() bool {
	return id.raw == "" || (id.numeric && id.raw == "0")
}

func (id ID) IsNumeric() bool {
	return id.numeric
}

func (id ID) String() string {
	return id.raw
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.raw), nil
	}
	return json.Marshal(id.raw)
}

func (id ID) MarshalYAML() (any, error) {
	if id.numeric {
		if n, err := strconv.ParseInt(id.raw, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(id.raw, 64); err == nil {
			return f, nil
		}
	}
	return id.raw, nil
}

type Direction int

const (
	Received Direction = 0
	Draft    Direction = 1
	Sent     Direction = 2
	Outbox   Direction = 3
)

var directionNames = map[Direction]string{
	Received: "received",
	Draft:    "draft",
	Sent:     "sent",
	Outbox:   "outbox",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", int(d))
}

func (d Direction) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }
func (d Direction) MarshalYAML() (any, error)    { return d.String(), nil }

type Status int

const (
	StatusUnknown Status = 0
	Unread        Status = 1
	Read          Status = 2
	StatusSent    Status = 3
	StatusDraft   Status = 4
	Failed        Status = 5
)

var statusNames = map[Status]string{
	StatusUnknown: "unknown",
	Unread:        "unread",
	Read:          "read",
	StatusSent:    "sent",
	StatusDraft:   "draft",
	Failed:        "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

func (s Status) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }
func (s Status) MarshalYAML() (any, error)    { return s.String(), nil }

// Message is one SMS record as normalized from a modem list response.
type Message struct {
	ID           ID        `json:"id" yaml:"id"`
	ContactID    ID        `json:"contact_id" yaml:"contact_id"`
	PhoneNumbers []string  `json:"phone_numbers" yaml:"phone_numbers"`
	Timestamp    string    `json:"timestamp" yaml:"timestamp"`
	Body         string    `json:"body" yaml:"body"`
	Direction    Direction `json:"direction" yaml:"direction"`
	Status       Status    `json:"status" yaml:"status"`
}

// Key identifies a message across polls.
func (m Message) Key() string {
	return m.ContactID.String() + "/" + m.ID.String()
}

// FilterDirection returns the messages with direction d, in order.
// The input slice is left untouched.
func FilterDirection(msgs []Message, d Direction) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Direction == d {
			out = append(out, m)
		}
	}
	return out
}
