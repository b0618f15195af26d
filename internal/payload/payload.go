// Package payload turns modem list responses of varying shape into
// model.Message values.
//
// Two record dialects are understood: the capitalized one used by the
// jrd web API (SMSId, ContactId, PhoneNumber, SMSTime, SMSContent,
// SMSType, TagType) and the lowercase "simple" one (id, from, time,
// text, read). Every logical field is read through an ordered list of
// candidate names; the first present, non-null value wins.
package payload

import (
	"github.com/tidwall/gjson"

	"github.com/LeventeLantos/modem-sms/internal/model"
)

// Containers are checked in this order before falling back to a scan.
var Containers = []string{"MessageList", "SMSList", "ContentList"}

var (
	idNames        = []string{"SMSId", "Id", "id", "index"}
	contactNames   = []string{"ContactId", "contactId", "contact_id"}
	numberNames    = []string{"PhoneNumber", "Number", "from"}
	timeNames      = []string{"SMSTime", "Time", "time"}
	bodyNames      = []string{"SMSContent", "Content", "text"}
	directionNames = []string{"SMSType", "type"}
	statusNames    = []string{"TagType", "Status", "read"}
)

const UnknownTime = "Unknown"

// Parse wraps raw JSON for Records and Messages.
func Parse(b []byte) gjson.Result {
	return gjson.ParseBytes(b)
}

// Records returns the list of message records held by payload.
//
// A named container wins when present. Otherwise the first member, in
// document order, whose value is a non-empty array starting with an
// object is used. That fallback is best effort: a payload carrying two
// such arrays resolves to whichever comes first. Anything else yields an
// empty slice.
func Records(payload gjson.Result) []gjson.Result {
	if !payload.IsObject() {
		return nil
	}

	for _, name := range Containers {
		v := payload.Get(name)
		if !v.Exists() {
			continue
		}
		if !v.IsArray() {
			return nil
		}
		return v.Array()
	}

	var found []gjson.Result
	payload.ForEach(func(_, value gjson.Result) bool {
		if !value.IsArray() {
			return true
		}
		items := value.Array()
		if len(items) > 0 && items[0].IsObject() {
			found = items
			return false
		}
		return true
	})
	return found
}

// Messages is Records followed by Decode on every record.
func Messages(payload gjson.Result) []model.Message {
	recs := Records(payload)
	out := make([]model.Message, 0, len(recs))
	for _, r := range recs {
		out = append(out, Decode(r))
	}
	return out
}

// TotalPages reads the page count some list endpoints report. Zero means
// the payload did not say.
func TotalPages(payload gjson.Result) int {
	return int(payload.Get("TotalPageCount").Int())
}

// Decode maps one record onto a Message, filling defaults for anything
// missing.
func Decode(rec gjson.Result) model.Message {
	m := model.Message{
		PhoneNumbers: []string{},
		Timestamp:    UnknownTime,
	}

	if v, ok := first(rec, idNames); ok {
		m.ID = id(v)
	}
	if v, ok := first(rec, contactNames); ok {
		m.ContactID = id(v)
	}
	if v, ok := first(rec, numberNames); ok {
		m.PhoneNumbers = Numbers(v)
	}
	if v, ok := first(rec, timeNames); ok {
		m.Timestamp = text(v)
	}
	if v, ok := first(rec, bodyNames); ok {
		m.Body = text(v)
	}
	if v, ok := first(rec, directionNames); ok {
		m.Direction = model.Direction(v.Int())
	}
	if v, ok := first(rec, statusNames); ok {
		m.Status = status(v)
	}
	return m
}

// Numbers accepts a single phone number or a list of them.
func Numbers(v gjson.Result) []string {
	if !v.IsArray() {
		if v.Type == gjson.Null {
			return []string{}
		}
		return []string{text(v)}
	}
	items := v.Array()
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, text(it))
	}
	return out
}

func first(rec gjson.Result, names []string) (gjson.Result, bool) {
	for _, name := range names {
		v := rec.Get(name)
		if v.Exists() && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// id remembers whether the modem sent a number or a string.
func id(v gjson.Result) model.ID {
	if v.Type == gjson.Number {
		return model.NumericID(v.Raw)
	}
	return model.TextID(text(v))
}

// text keeps integers verbatim and unquotes strings.
func text(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	return v.String()
}

// The simple dialect reports a read flag instead of a tag code.
func status(v gjson.Result) model.Status {
	switch v.Type {
	case gjson.True:
		return model.Read
	case gjson.False:
		return model.Unread
	}
	return model.Status(v.Int())
}
