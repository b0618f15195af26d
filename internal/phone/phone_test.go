package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LeventeLantos/modem-sms/internal/model"
	"github.com/LeventeLantos/modem-sms/internal/payload"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+7 (916) 123-45-67", "79161234567"},
		{"89161234567", "79161234567"},
		{"8 916 123 45 67", "79161234567"},
		{"+79161234567", "79161234567"},
		{"+89161234567", "89161234567"},
		{"900", "900"},
		{"ShortCode", "shortcode"},
		{"  MegaFon  ", "megafon"},
		{"+7+916", "+7+916"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNormalize_DomesticAndInternationalEqual(t *testing.T) {
	assert.Equal(t, Normalize("+7 (916) 123-45-67"), Normalize("89161234567"))
}

func TestFindContactID(t *testing.T) {
	msgs := []model.Message{
		{ContactID: model.NumericID("1"), PhoneNumbers: []string{"+1 555 0100"}},
		{ContactID: model.NumericID("2"), PhoneNumbers: []string{"12345", "89161234567"}},
		{ContactID: model.NumericID("3"), PhoneNumbers: []string{"+79161234567"}},
		{ContactID: model.NumericID("4"), PhoneNumbers: []string{"Bank"}},
	}

	id, ok := FindContactID("+7 916 123 45 67", msgs)
	assert.True(t, ok)
	assert.Equal(t, model.NumericID("2"), id, "first match in source order wins")

	id, ok = FindContactID("bank", msgs)
	assert.True(t, ok)
	assert.Equal(t, model.NumericID("4"), id)

	_, ok = FindContactID("79161234560", msgs)
	assert.False(t, ok)

	_, ok = FindContactID("9161234567", msgs)
	assert.False(t, ok, "partial numbers must not match")
}

func TestFindContactID_BlankTargetNeverMatches(t *testing.T) {
	msgs := []model.Message{{ContactID: model.NumericID("1"), PhoneNumbers: []string{""}}}
	_, ok := FindContactID("", msgs)
	assert.False(t, ok)
	_, ok = FindContactID("   ", msgs)
	assert.False(t, ok)
}

func TestFindContactID_SkipsMessagesWithoutContact(t *testing.T) {
	raw := `{"MessageList":[
		{"SMSId":5,"PhoneNumber":["89161234567"]},
		{"SMSId":4,"ContactId":0,"PhoneNumber":["89161234567"]},
		{"SMSId":6,"ContactId":2,"PhoneNumber":["89161234567"]}
	]}`
	msgs := payload.Messages(payload.Parse([]byte(raw)))

	id, ok := FindContactID("+79161234567", msgs)
	assert.True(t, ok)
	assert.Equal(t, model.NumericID("2"), id)

	_, ok = FindContactID("+79161234567", msgs[:2])
	assert.False(t, ok, "no usable contact id")
}

func TestFindContactID_StringOrListNumbers(t *testing.T) {
	single := payload.Messages(payload.Parse([]byte(`{"MessageList":[{"SMSId":1,"ContactId":8,"PhoneNumber":"89161234567"}]}`)))
	list := payload.Messages(payload.Parse([]byte(`{"MessageList":[{"SMSId":1,"ContactId":8,"PhoneNumber":["89161234567"]}]}`)))

	for _, msgs := range [][]model.Message{single, list} {
		id, ok := FindContactID("+79161234567", msgs)
		assert.True(t, ok)
		assert.Equal(t, model.NumericID("8"), id)
	}
}

func TestEndToEnd_NormalizeFilterMatch(t *testing.T) {
	raw := `{"MessageList":[{"SMSId":5,"ContactId":2,"PhoneNumber":["89161234567"],"SMSType":0,"TagType":1,"SMSContent":"hi"}]}`
	all := payload.Messages(payload.Parse([]byte(raw)))

	received := model.FilterDirection(all, model.Received)
	if assert.Len(t, received, 1) {
		m := received[0]
		assert.Equal(t, model.NumericID("5"), m.ID)
		assert.Equal(t, model.NumericID("2"), m.ContactID)
		assert.Equal(t, model.Unread, m.Status)
		assert.Equal(t, model.Received, m.Direction)
		assert.Equal(t, "hi", m.Body)
	}

	id, ok := FindContactID("+79161234567", all)
	assert.True(t, ok)
	assert.Equal(t, model.NumericID("2"), id)
}

func TestValidateDestination(t *testing.T) {
	assert.NoError(t, ValidateDestination("+79161234567", "RU"))
	assert.NoError(t, ValidateDestination("89161234567", "ru"))
	assert.Error(t, ValidateDestination("900", "RU"))
	assert.Error(t, ValidateDestination("hello", "RU"))
}

func TestE164(t *testing.T) {
	assert.Equal(t, "+79161234567", E164("8 916 123-45-67", "RU"))
	assert.Equal(t, "ShortCode", E164(" ShortCode ", "RU"))
}
