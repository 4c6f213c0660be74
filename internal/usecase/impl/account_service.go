// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	"tasktracker/config"
	deliverycontext "tasktracker/internal/delivery/context"
	"tasktracker/internal/domain/entity"
	domainerrors "tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/repository"
	"tasktracker/internal/domain/service"
	"tasktracker/internal/errors"
	"tasktracker/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// timingDummyPassword is hashed once at construction. Logins for an unknown
// email are checked against that hash, so a missing account costs the same
// hashing work as a wrong password at whatever cost the hasher is configured with.
const timingDummyPassword = "timing-dummy-password-00000000"

// accountService implements the AccountUsecase interface.
type accountService struct {
	userRepo     repository.UserRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	policy       service.PasswordPolicy
	dummyHash    string
	logger       *slog.Logger
	now          func() time.Time
}

// AccountServiceParams holds dependencies for AccountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	UserRepo     repository.UserRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Config       *config.Config
	Logger       *slog.Logger
}

// NewAccountService is the constructor for accountService.
func NewAccountService(params AccountServiceParams) (usecase.AccountUsecase, error) {
	dummyHash, err := params.Hasher.Hash(timingDummyPassword)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive timing dummy hash")
	}

	policy := service.PasswordPolicy{MinDigits: config.DefaultMinPasswordDigits}
	if params.Config != nil && params.Config.PasswordPolicy != nil {
		policy.MinDigits = params.Config.PasswordPolicy.MinDigits
	}

	return &accountService{
		userRepo:     params.UserRepo,
		hasher:       params.Hasher,
		tokenService: params.TokenService,
		policy:       policy,
		dummyHash:    dummyHash,
		logger:       params.Logger,
		now:          utcNow,
	}, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates an account. The duplicate check runs before the password
// policy so that a taken email is reported as such.
func (srv *accountService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.UserOutput, error) {
	exists, err := srv.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check email availability")
	}
	if exists {
		srv.log(ctx).Info("Registration rejected, email taken", slog.String("email", input.Email))

		return nil, errors.WithStack(domainerrors.ErrEmailAlreadyRegistered)
	}

	if err := srv.policy.Validate(input.Password); err != nil {
		srv.log(ctx).Info("Registration rejected by password policy", slog.String("email", input.Email))

		return nil, errors.WithStack(domainerrors.ErrPasswordPolicy.WithMessage(err.Error()))
	}

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	user := &entity.User{
		Email:        input.Email,
		PasswordHash: hashedPassword,
		CreatedAt:    srv.now(),
	}

	if err := srv.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			// Lost a race with a concurrent registration of the same email.
			return nil, errors.WithStack(domainerrors.ErrEmailAlreadyRegistered)
		}

		return nil, errors.Wrap(err, "failed to create user during registration")
	}

	srv.log(ctx).Info("User registered", slog.String("userID", user.ID.String()))

	return usecase.NewUserOutput(user), nil
}

// Login verifies credentials and issues an access token.
func (srv *accountService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		srv.hasher.Check(input.Password, srv.dummyHash)
		srv.log(ctx).Info("Login failed", slog.String("email", input.Email))

		return nil, errors.WithStack(domainerrors.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up user for login")
	}

	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Info("Login failed", slog.String("email", input.Email))

		return nil, errors.WithStack(domainerrors.ErrInvalidCredentials)
	}

	ttl := srv.tokenService.DefaultTTL()
	if input.RememberMe {
		ttl = srv.tokenService.LongLivedTTL()
	}

	token, err := srv.tokenService.Issue(user.ID, ttl)
	if err != nil {
		srv.log(ctx).Error("Failed to issue access token", slog.String("userID", user.ID.String()), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrTokenIssueFailed, err.Error())
	}

	srv.log(ctx).Debug("User logged in", slog.String("userID", user.ID.String()), slog.Duration("ttl", ttl))

	return &usecase.LoginOutput{
		AccessToken: token,
		TokenType:   usecase.TokenTypeBearer,
		User:        usecase.NewUserOutput(user),
	}, nil
}

// GetSelf loads the account behind a verified token. A token for a deleted
// account yields ErrUserNotFound.
func (srv *accountService) GetSelf(ctx context.Context, userID uuid.UUID) (*usecase.UserOutput, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.WithStack(domainerrors.ErrUserNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load current user")
	}

	return usecase.NewUserOutput(user), nil
}

func (srv *accountService) Provision(ctx context.Context, input *usecase.RegisterInput) (*usecase.UserOutput, bool, error) {
	existing, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err == nil {
		return usecase.NewUserOutput(existing), false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, errors.Wrap(err, "failed to look up account to provision")
	}

	user, err := srv.Register(ctx, input)
	if err != nil {
		return nil, false, err
	}

	return user, true, nil
}
