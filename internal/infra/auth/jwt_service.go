package auth

import (
	"log/slog"
	"time"

	"tasktracker/config"
	"tasktracker/internal/domain/service"
	"tasktracker/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// jwtService is a concrete implementation of the TokenService interface using HS256 JWTs.
type jwtService struct {
	secret       []byte
	issuer       string
	defaultTTL   time.Duration
	longLivedTTL time.Duration
	now          func() time.Time
	parser       *jwt.Parser
}

// NewJWTService builds the token service from the process-wide signing secret.
// An empty secret is a startup error; there is no built-in default.
func NewJWTService(cfg *config.Config, logger *slog.Logger) (service.TokenService, error) {
	svc, err := newJWTService(cfg, time.Now)
	if err != nil {
		return nil, err
	}

	if cfg.WeakSecret() && logger != nil {
		logger.Warn("Token signing secret is shorter than recommended",
			slog.Int("length", len(cfg.Auth.Secret)),
			slog.Int("recommended", cfg.Auth.MinSecretLength),
		)
	}

	return svc, nil
}

func newJWTService(cfg *config.Config, now func() time.Time) (*jwtService, error) {
	if cfg == nil || cfg.Auth == nil || cfg.Auth.Secret == "" {
		return nil, errors.WithStack(config.ErrMissingSecret)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
		// Reject non-zero padding bits so that every character of the signature is significant.
		jwt.WithStrictDecoding(),
	}
	if cfg.Auth.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Auth.Issuer))
	}

	return &jwtService{
		secret:       []byte(cfg.Auth.Secret),
		issuer:       cfg.Auth.Issuer,
		defaultTTL:   cfg.Auth.TokenTTL,
		longLivedTTL: cfg.Auth.LongLivedTokenTTL,
		now:          now,
		parser:       jwt.NewParser(opts...),
	}, nil
}

// Issue signs {sub, iat, exp[, iss]} with HS256.
func (s *jwtService) Issue(subject uuid.UUID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.Errorf("token ttl must be positive, got %s", ttl)
	}

	now := s.now()
	claims := accessClaims{
		Subject:   subject.String(),
		Issuer:    s.issuer,
		IssuedAt:  timestamp{now},
		ExpiresAt: timestamp{now.Add(ttl)},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}

	return signed, nil
}

// Verify checks signature, algorithm and expiry, then returns the subject.
func (s *jwtService) Verify(tokenString string) (uuid.UUID, error) {
	var claims accessClaims

	_, err := s.parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, service.ErrTokenExpired
		}

		return uuid.Nil, service.ErrInvalidToken
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil || subject == uuid.Nil {
		return uuid.Nil, service.ErrInvalidToken
	}

	return subject, nil
}

func (s *jwtService) DefaultTTL() time.Duration {
	return s.defaultTTL
}

func (s *jwtService) LongLivedTTL() time.Duration {
	return s.longLivedTTL
}
