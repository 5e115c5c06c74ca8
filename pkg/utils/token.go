package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// identityClaims lists the claim names carrying the learner id, highest priority first.
var identityClaims = []string{"UserId", "userId", "sub"}

// DecodeLearnerID extracts the learner identity from a bearer token without
// verifying its signature. Malformed tokens and missing or non-numeric
// identity claims yield ok == false.
func DecodeLearnerID(token string) (uint, bool) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return 0, false
	}

	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return 0, false
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return 0, false
	}

	for _, name := range identityClaims {
		raw, ok := claims[name]
		if !ok || isEmptyClaim(raw) {
			continue
		}
		// the first populated claim decides, a bad value does not fall through
		return parseIdentity(raw)
	}
	return 0, false
}

func isEmptyClaim(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case bool:
		return !t
	}
	return false
}

func parseIdentity(v interface{}) (uint, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 1 {
			return 0, false
		}
		return uint(t), true
	case string:
		s := strings.TrimSpace(t)
		end := 0
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		if end == 0 {
			return 0, false
		}
		id, err := strconv.ParseUint(s[:end], 10, 64)
		if err != nil || id == 0 {
			return 0, false
		}
		return uint(id), true
	}
	return 0, false
}

// ValidateJWT verifies an HMAC-signed token with the given secret.
func ValidateJWT(tokenStr, secret string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
