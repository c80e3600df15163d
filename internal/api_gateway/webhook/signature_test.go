package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	secret := []byte("whsec_test")
	body := []byte(`{"id":"evt_1","event":"payment.captured"}`)
	valid := Sign(secret, body)

	testCases := []struct {
		name      string
		secret    []byte
		body      []byte
		signature string
		want      bool
	}{
		{name: "matching signature", secret: secret, body: body, signature: valid, want: true},
		{name: "uppercase hex", secret: secret, body: body, signature: upper(valid), want: true},
		{name: "tampered body", secret: secret, body: []byte(`{"id":"evt_1","event":"payment.failed"}`), signature: valid},
		{name: "wrong secret", secret: []byte("other"), body: body, signature: valid},
		{name: "empty signature", secret: secret, body: body, signature: ""},
		{name: "not hex", secret: secret, body: body, signature: "zz-not-hex"},
		{name: "no secret configured", secret: nil, body: body, signature: valid},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, VerifySignature(tc.secret, tc.body, tc.signature))
		})
	}
}

func upper(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'f' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}
