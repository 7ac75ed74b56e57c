package redact

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString_Card(t *testing.T) {
	got := String("Card 4111 1111 1111 1111 on file", Options{})
	assert.Equal(t, "Card "+SentinelCard+" on file", got)

	got = String("card **** **** **** 1111", Options{})
	assert.Equal(t, "card "+SentinelCard, got)

	got = String("4111111111111111", Options{})
	assert.Equal(t, SentinelCard, got)
}

func TestString_Email(t *testing.T) {
	assert.Equal(t, "[REDACTED]@example.com", String("jane.doe@example.com", Options{}))
	assert.Equal(t, "mail [REDACTED]@corp.example.co.uk now", String("mail a+b@corp.example.co.uk now", Options{}))
}

func TestString_OTPOnlyInAuthContext(t *testing.T) {
	assert.Equal(t, SentinelOTP, String("123456", Options{AuthContext: true}))
	assert.Equal(t, "123456", String("123456", Options{}))
	assert.Equal(t, "Your code is "+SentinelOTP, String("Your code is 482913", Options{AuthContext: true}))
}

func TestString_CVVAndSSN(t *testing.T) {
	assert.Equal(t, "cvv: "+SentinelCVV, String("cvv: 123", Options{}))
	assert.Equal(t, SentinelSSN, String("123-45-6789", Options{}))
	assert.Equal(t, "ssn "+SentinelSSN+" on file", String("ssn 123-45-6789 on file", Options{}))
}

func TestString_Phone(t *testing.T) {
	assert.Equal(t, "+1********34", String("+14155551234", Options{}))
	assert.Equal(t, "call ********34", String("call (415) 555-1234", Options{}))
	assert.Equal(t, "+44********58", String("+442079460958", Options{}))
}

func TestString_Address(t *testing.T) {
	got := String("ship to 742 Evergreen Terrace please", Options{})
	assert.Equal(t, "ship to "+SentinelAddress+" please", got)
}

func TestString_Tokens(t *testing.T) {
	assert.Equal(t, "Bearer "+SentinelToken, String("Bearer abcdefghijklmnop1234", Options{}))
	assert.Equal(t, "key "+SentinelToken, String("key sk_live_abcdefgh12345678", Options{}))
	assert.Equal(t, "tok "+SentinelToken, String("tok 9f8e7d6c5b4a39281706f5e4d3c2b1a0ZZ", Options{}))
}

func TestString_AllowListedIdentifiers(t *testing.T) {
	sid := "SM0123456789abcdef0123456789abcdef"
	assert.Equal(t, sid, String(sid, Options{}))
	assert.Equal(t, "sent as "+sid, String("sent as "+sid, Options{}))

	id := "550e8400-e29b-41d4-a716-446655440000"
	assert.Equal(t, id, String(id, Options{}))

	assert.Equal(t, "mock-sms-0123456789abcdef", String("mock-sms-0123456789abcdef", Options{}))
	assert.True(t, IsAllowedIdentifier("wamid.HBgLMTQxNTU1NTEyMzQVAgARGBI="))
}

func TestString_IdentifiersInsideFreeText(t *testing.T) {
	msg := "outbound job 00000000-1111-2222-3333-444444444444 is no longer claimed"
	assert.Equal(t, msg, String(msg, Options{}))
	assert.Equal(t, msg, String(msg, Options{AuthContext: true}))

	// Secrets next to a kept identifier are still redacted.
	got := String("job 550e8400-e29b-41d4-a716-446655440000 card 4111 1111 1111 1111 code 482913", Options{AuthContext: true})
	assert.Equal(t, "job 550e8400-e29b-41d4-a716-446655440000 card "+SentinelCard+" code "+SentinelOTP, got)

	sid := "SM0123456789abcdef0123456789abcdef"
	assert.Equal(t, "retry of "+sid+" after 2024", String("retry of "+sid+" after 2024", Options{}))

	// Digit runs that only look like part of an identifier are not shielded.
	assert.Equal(t, "id 1234-"+SentinelCard, String("id 1234-4111111111111111", Options{}))
}

func TestString_LeavesOrdinaryText(t *testing.T) {
	s := "Your appointment is confirmed for 2024-03-01T10:00:00Z"
	assert.Equal(t, s, String(s, Options{}))
}

func TestValue_SecretKeys(t *testing.T) {
	in := map[string]any{
		"api_key":  "abc",
		"Password": 123.0,
		"nested":   map[string]any{"access_token": "x", "channel": "sms"},
		"count":    2.0,
	}

	out, ok := Value(in, Options{}).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, Sentinel, out["api_key"])
	assert.Equal(t, Sentinel, out["Password"])
	assert.Equal(t, 2.0, out["count"])

	nested, ok := out["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, Sentinel, nested["access_token"])
	assert.Equal(t, "sms", nested["channel"])
}

func TestValue_FreeTextCompacted(t *testing.T) {
	body := "Your card 4111 1111 1111 1111 is locked, call us"
	out, ok := Value(map[string]any{"body": body}, Options{}).(map[string]any)
	require.True(t, ok)

	p, ok := out["body"].(Preview)
	require.True(t, ok)
	assert.Equal(t, len([]rune(body)), p.Length)
	assert.Len(t, p.BLAKE3, 64)
	assert.LessOrEqual(t, len([]rune(p.Preview)), DefaultPreviewLength)
	assert.NotContains(t, p.Preview, "4111")

	again, ok := Value(map[string]any{"body": body}, Options{}).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, p.BLAKE3, again["body"].(Preview).BLAKE3)
}

func TestValue_Arrays(t *testing.T) {
	out := Value([]any{"jane@example.com", 5.0, true, nil}, Options{})
	assert.Equal(t, []any{"[REDACTED]@example.com", 5.0, true, nil}, out)
}

func TestJSON(t *testing.T) {
	out := JSON(json.RawMessage(`{"email":"a.b@example.org","count":3}`), Options{})
	assert.JSONEq(t, `{"count":3,"email":"[REDACTED]@example.org"}`, string(out))

	out = JSON(json.RawMessage(`not json jane@example.com`), Options{})
	assert.JSONEq(t, `"not json [REDACTED]@example.com"`, string(out))

	assert.Empty(t, JSON(nil, Options{}))
}

func TestMarshal(t *testing.T) {
	type input struct {
		Destination string `json:"destination"`
		Secret      string `json:"client_secret"`
		Text        string `json:"text"`
	}
	raw, err := Marshal(input{Destination: "+14155551234", Secret: "s3cr3t", Text: "hello"}, Options{})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "+1********34", decoded["destination"])
	assert.Equal(t, Sentinel, decoded["client_secret"])
	preview, ok := decoded["text"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", preview["preview"])
	assert.EqualValues(t, 5, preview["length"])

	raw, err = Marshal(nil, Options{})
	require.NoError(t, err)
	assert.Nil(t, raw)
}
