package auth

import (
	"strings"
	"testing"
	"time"

	"tasktracker/config"
	"tasktracker/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_signing_secret_key_very_long_for_testing"

func newTestConfig(secret string) *config.Config {
	return &config.Config{
		Auth: &config.AuthConfig{
			Secret:            secret,
			TokenTTL:          24 * time.Hour,
			LongLivedTokenTTL: 30 * 24 * time.Hour,
			MinSecretLength:   32,
		},
	}
}

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestJWTService(t *testing.T, clock *fakeClock) *jwtService {
	t.Helper()

	svc, err := newJWTService(newTestConfig(testSecret), clock.Now)
	require.NoError(t, err)

	return svc
}

func TestJWTService_IssueAndVerify(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestJWTService(t, clock)
	userID := uuid.New()

	token, err := svc.Issue(userID, time.Hour)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	subject, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, subject)
}

func TestJWTService_Expiry(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: issuedAt}
	svc := newTestJWTService(t, clock)
	userID := uuid.New()

	token, err := svc.Issue(userID, time.Hour)
	require.NoError(t, err)

	clock.now = issuedAt.Add(time.Hour - time.Second)
	subject, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, subject)

	clock.now = issuedAt.Add(time.Hour + time.Second)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, service.ErrTokenExpired)
}

func TestJWTService_ExpiryKeepsSubSecondPrecision(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 900_000_000, time.UTC)
	clock := &fakeClock{now: issuedAt}
	svc := newTestJWTService(t, clock)
	userID := uuid.New()

	token, err := svc.Issue(userID, time.Hour)
	require.NoError(t, err)

	clock.now = issuedAt.Add(time.Hour - 400*time.Millisecond)
	subject, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, subject)

	clock.now = issuedAt.Add(time.Hour - time.Nanosecond)
	_, err = svc.Verify(token)
	assert.NoError(t, err)

	clock.now = issuedAt.Add(time.Hour)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, service.ErrTokenExpired)
}

func TestTimestamp_JSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "integer seconds", raw: "1704110400", want: time.Unix(1704110400, 0)},
		{name: "nanosecond fraction", raw: "1704110400.900000001", want: time.Unix(1704110400, 900_000_001)},
		{name: "short fraction", raw: "1704110400.5", want: time.Unix(1704110400, 500_000_000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts timestamp
			require.NoError(t, ts.UnmarshalJSON([]byte(tt.raw)))
			assert.True(t, tt.want.Equal(ts.Time))
		})
	}

	encoded, err := timestamp{time.Unix(1704110400, 7)}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "1704110400.000000007", string(encoded))

	var ts timestamp
	assert.Error(t, ts.UnmarshalJSON([]byte(`"soon"`)))
}

func TestJWTService_TamperedTokensAreRejected(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	svc := newTestJWTService(t, clock)

	token, err := svc.Issue(uuid.New(), time.Hour)
	require.NoError(t, err)

	for i := range token {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]

		_, err := svc.Verify(tampered)
		assert.Error(t, err, "tampered position %d must not verify", i)
	}
}

func TestJWTService_RejectsMalformedInput(t *testing.T) {
	svc := newTestJWTService(t, &fakeClock{now: time.Now()})

	inputs := []string{
		"",
		"clearly-not-a-jwt-token-format",
		"a.b.c",
		"...",
		"eyJhbGciOiJIUzI1NiJ9.e30.",
	}

	for _, input := range inputs {
		_, err := svc.Verify(input)
		assert.ErrorIs(t, err, service.ErrInvalidToken, "input %q", input)
	}
}

func TestJWTService_RejectsOtherSecretsAndAlgorithms(t *testing.T) {
	now := time.Now()
	svc := newTestJWTService(t, &fakeClock{now: now})
	userID := uuid.New()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-secret"))
	require.NoError(t, err)
	_, err = svc.Verify(foreign)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.Verify(hs512)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(unsigned)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestJWTService_RequiresExpiryAndUUIDSubject(t *testing.T) {
	now := time.Now()
	svc := newTestJWTService(t, &fakeClock{now: now})

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: uuid.NewString(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.Verify(noExp)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.Verify(badSubject)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestJWTService_Issuer(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cfg := newTestConfig(testSecret)
	cfg.Auth.Issuer = "tasktracker"
	svc, err := newJWTService(cfg, clock.Now)
	require.NoError(t, err)

	token, err := svc.Issue(uuid.New(), time.Hour)
	require.NoError(t, err)
	_, err = svc.Verify(token)
	assert.NoError(t, err)

	other := newTestJWTService(t, clock)
	foreign, err := other.Issue(uuid.New(), time.Hour)
	require.NoError(t, err)
	_, err = svc.Verify(foreign)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestJWTService_IssueRejectsNonPositiveTTL(t *testing.T) {
	svc := newTestJWTService(t, &fakeClock{now: time.Now()})

	_, err := svc.Issue(uuid.New(), 0)
	assert.Error(t, err)
}

func TestNewJWTService_EmptySecret(t *testing.T) {
	svc, err := NewJWTService(newTestConfig(""), nil)

	assert.Error(t, err)
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, config.ErrMissingSecret)
}

func TestNewJWTService_TTLs(t *testing.T) {
	svc, err := NewJWTService(newTestConfig(testSecret), nil)
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, svc.DefaultTTL())
	assert.Equal(t, 30*24*time.Hour, svc.LongLivedTTL())
}
