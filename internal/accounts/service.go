package accounts

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bazarcheh/bazarcheh-backend/internal/notifications"
	"github.com/bazarcheh/bazarcheh-backend/pkg/auth"
	authsession "github.com/bazarcheh/bazarcheh-backend/pkg/auth/session"
	"github.com/bazarcheh/bazarcheh-backend/pkg/config"
	"github.com/bazarcheh/bazarcheh-backend/pkg/db"
	"github.com/bazarcheh/bazarcheh-backend/pkg/db/models"
	"github.com/bazarcheh/bazarcheh-backend/pkg/enums"
	pkgerrors "github.com/bazarcheh/bazarcheh-backend/pkg/errors"
	"github.com/bazarcheh/bazarcheh-backend/pkg/logger"
	"github.com/bazarcheh/bazarcheh-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const otpCodeLength = 6

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type refreshSessions interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// RegisterInput is the validated registration payload.
type RegisterInput struct {
	Phone     string
	Password  string
	FirstName string
	LastName  string
	Email     *string
}

// Service exposes registration, phone verification, and login flows.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*UserDTO, error)
	VerifyPhone(ctx context.Context, phone, code string) (*UserDTO, error)
	ResendCode(ctx context.Context, phone string) error
	Login(ctx context.Context, phone, password string) (*LoginResult, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessID string) error
}

type service struct {
	repo     *Repository
	tx       txRunner
	sender   notifications.Sender
	sessions refreshSessions
	logg     *logger.Logger
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
	otpCfg   config.OTPConfig
}

// NewService builds the accounts service with the required dependencies.
func NewService(
	repo *Repository,
	tx txRunner,
	sender notifications.Sender,
	sessions refreshSessions,
	logg *logger.Logger,
	jwtCfg config.JWTConfig,
	pwCfg config.PasswordConfig,
	otpCfg config.OTPConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if sender == nil {
		return nil, fmt.Errorf("notification sender required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		sender:   sender,
		sessions: sessions,
		logg:     logg,
		jwtCfg:   jwtCfg,
		pwCfg:    pwCfg,
		otpCfg:   otpCfg,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*UserDTO, error) {
	phone := normalizePhone(input.Phone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	var code string
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user := &models.User{
			Phone:        phone,
			FirstName:    strings.TrimSpace(input.FirstName),
			LastName:     strings.TrimSpace(input.LastName),
			Email:        input.Email,
			PasswordHash: hash,
			IsActive:     true,
		}
		if _, err := repo.CreateUser(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "phone already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}

		issued, err := s.issueOTP(ctx, repo, user.ID)
		if err != nil {
			return err
		}
		created = user
		code = issued
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deliverCode(ctx, phone, code)

	dto := toUserDTO(*created)
	return &dto, nil
}

func (s *service) VerifyPhone(ctx context.Context, phone, code string) (*UserDTO, error) {
	phone = normalizePhone(phone)
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone and code are required")
	}

	var verified *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := s.loadUserByPhone(ctx, repo, phone)
		if err != nil {
			return err
		}
		if user.PhoneVerified() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "phone already verified")
		}

		otp, err := repo.LatestOTP(ctx, user.ID, enums.OtpPurposeVerifyPhone)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired code")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load otp")
		}

		now := time.Now().UTC()
		if !otp.Usable(now) || otp.Attempts >= s.otpCfg.MaxAttempts {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired code")
		}
		if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
			if err := repo.BumpOTPAttempts(ctx, otp.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record failed attempt")
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired code")
		}

		if err := repo.ConsumeOTP(ctx, otp.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume otp")
		}
		if err := repo.MarkPhoneVerified(ctx, user.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark phone verified")
		}
		user.PhoneVerifiedAt = &now
		verified = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := toUserDTO(*verified)
	return &dto, nil
}

func (s *service) ResendCode(ctx context.Context, phone string) error {
	phone = normalizePhone(phone)
	if phone == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}

	var code string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := s.loadUserByPhone(ctx, repo, phone)
		if err != nil {
			return err
		}
		if user.PhoneVerified() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "phone already verified")
		}

		latest, err := repo.LatestOTP(ctx, user.ID, enums.OtpPurposeVerifyPhone)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load otp")
		}
		if latest != nil && time.Since(latest.CreatedAt) < s.otpCfg.ResendInterval {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "code was sent recently")
		}

		issued, err := s.issueOTP(ctx, repo, user.ID)
		if err != nil {
			return err
		}
		code = issued
		return nil
	})
	if err != nil {
		return err
	}

	s.deliverCode(ctx, phone, code)
	return nil
}

func (s *service) Login(ctx context.Context, phone, password string) (*LoginResult, error) {
	phone = normalizePhone(phone)
	if phone == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone and password are required")
	}

	user, err := s.loadUserByPhone(ctx, s.repo, phone)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if !user.PhoneVerified() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "phone not verified")
	}

	now := time.Now().UTC()
	accessID := authsession.NewAccessID()
	accessToken, err := auth.MintAccessToken(s.jwtCfg, now, auth.AccessTokenPayload{
		UserID:        user.ID,
		Phone:         user.Phone,
		PhoneVerified: true,
		JTI:           accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}

	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logg.Warn(ctx, "record last login failed: "+err.Error())
	}

	return &LoginResult{
		User: toUserDTO(*user),
		Tokens: TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
	}, nil
}

func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := auth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, authsession.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	newAccess, err := auth.MintAccessToken(s.jwtCfg, time.Now().UTC(), auth.AccessTokenPayload{
		UserID:        claims.UserID,
		Phone:         claims.Phone,
		PhoneVerified: claims.PhoneVerified,
		JTI:           newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &TokenPair{AccessToken: newAccess, RefreshToken: newRefresh}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access id required")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) issueOTP(ctx context.Context, repo *Repository, userID uuid.UUID) (string, error) {
	code, err := security.GenerateOTPCode(otpCodeLength)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate code")
	}
	otp := &models.OtpCode{
		UserID:    userID,
		Code:      code,
		Purpose:   enums.OtpPurposeVerifyPhone,
		ExpiresAt: time.Now().UTC().Add(s.otpCfg.TTL),
	}
	if _, err := repo.CreateOTP(ctx, otp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create otp")
	}
	return code, nil
}

// deliverCode hands the code to the notification sender. Delivery failures
// are logged and never surfaced to the caller.
func (s *service) deliverCode(ctx context.Context, phone, code string) {
	if err := s.sender.SendCode(ctx, phone, code); err != nil {
		ctx = s.logg.WithField(ctx, "phone", phone)
		s.logg.Warn(ctx, "verification code delivery failed: "+err.Error())
	}
}

func (s *service) loadUserByPhone(ctx context.Context, repo *Repository, phone string) (*models.User, error) {
	user, err := repo.FindUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	return phone
}
