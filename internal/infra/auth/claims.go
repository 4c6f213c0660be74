package auth

import (
	"strconv"
	"strings"
	"time"

	"tasktracker/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

const nanosDigits = 9

// accessClaims is the access token payload. It implements jwt.Claims itself
// because jwt.NumericDate truncates to jwt.TimePrecision (whole seconds), which
// would end a token up to a second before its TTL.
type accessClaims struct {
	Subject   string    `json:"sub"`
	Issuer    string    `json:"iss,omitempty"`
	IssuedAt  timestamp `json:"iat"`
	ExpiresAt timestamp `json:"exp"`
}

func (c accessClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.ExpiresAt.numericDate(), nil
}

func (c accessClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.IssuedAt.numericDate(), nil
}

func (c accessClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

func (c accessClaims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

func (c accessClaims) GetSubject() (string, error) {
	return c.Subject, nil
}

func (c accessClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}

// timestamp is a NumericDate written as seconds with a nine-digit fraction.
// Integer values from other issuers decode as well.
type timestamp struct {
	time.Time
}

func (t timestamp) numericDate() *jwt.NumericDate {
	if t.IsZero() {
		return nil
	}

	return &jwt.NumericDate{Time: t.Time}
}

func (t timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}

	nanos := strconv.Itoa(t.Nanosecond())
	nanos = strings.Repeat("0", nanosDigits-len(nanos)) + nanos

	return []byte(strconv.FormatInt(t.Unix(), 10) + "." + nanos), nil
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		t.Time = time.Time{}

		return nil
	}

	whole, fraction, _ := strings.Cut(raw, ".")
	seconds, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "parse numeric date %q", raw)
	}

	var nanos int64
	if fraction != "" {
		if len(fraction) > nanosDigits {
			fraction = fraction[:nanosDigits]
		}
		fraction += strings.Repeat("0", nanosDigits-len(fraction))
		if nanos, err = strconv.ParseInt(fraction, 10, 64); err != nil || nanos < 0 {
			return errors.Errorf("parse numeric date %q", raw)
		}
	}

	t.Time = time.Unix(seconds, nanos).UTC()

	return nil
}
