package utils

import (
	"encoding/base64"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestDecodeLearnerID(t *testing.T) {
	rawPayload := base64.RawURLEncoding.EncodeToString([]byte(`{"userId":"42"}`))

	tests := []struct {
		name   string
		token  string
		wantID uint
		wantOK bool
	}{
		{name: "UserId claim", token: signed(t, jwt.MapClaims{"UserId": 7}), wantID: 7, wantOK: true},
		{name: "userId string claim", token: signed(t, jwt.MapClaims{"userId": "12"}), wantID: 12, wantOK: true},
		{name: "sub claim", token: signed(t, jwt.MapClaims{"sub": "5"}), wantID: 5, wantOK: true},
		{name: "UserId wins over sub", token: signed(t, jwt.MapClaims{"UserId": 3, "sub": "9"}), wantID: 3, wantOK: true},
		{name: "empty UserId falls through", token: signed(t, jwt.MapClaims{"UserId": "", "userId": 8}), wantID: 8, wantOK: true},
		{name: "leading digits", token: signed(t, jwt.MapClaims{"sub": "15abc"}), wantID: 15, wantOK: true},
		{name: "non numeric", token: signed(t, jwt.MapClaims{"sub": "abc"})},
		{name: "no identity claim", token: signed(t, jwt.MapClaims{"email": "a@b.c"})},
		{name: "unverified header ignored", token: "garbage." + rawPayload + ".sig", wantID: 42, wantOK: true},
		{name: "empty", token: ""},
		{name: "two segments", token: "a.b"},
		{name: "bad base64", token: "a.!!!.c"},
		{name: "payload not json", token: "a." + base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := DecodeLearnerID(tt.token)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestValidateJWT(t *testing.T) {
	token := signed(t, jwt.MapClaims{"userId": 1})

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	assert.EqualValues(t, 1, claims["userId"])

	_, err = ValidateJWT(token, "other")
	assert.Error(t, err)
}

func TestFileURL(t *testing.T) {
	assert.Equal(t, "", FileURL("http://lms/uploads", ""))
	assert.Equal(t, "https://cdn/x.mp4", FileURL("http://lms/uploads", "https://cdn/x.mp4"))
	assert.Equal(t, "http://lms/uploads/a/b.pdf", FileURL("http://lms/uploads/", "/a/b.pdf"))
	assert.True(t, IsPlayable("intro.MP4"))
	assert.True(t, IsPlayable("x.webm"))
	assert.False(t, IsPlayable("slides.pdf"))
}
