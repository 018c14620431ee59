package accounts

import (
	"context"
	"time"

	"github.com/bazarcheh/bazarcheh-backend/pkg/db/models"
	"github.com/bazarcheh/bazarcheh-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository owns user and OTP persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an accounts repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateUser persists a new user row.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByPhone loads a user by the normalized phone number.
func (r *Repository) FindUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByID loads a user by id.
func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// MarkPhoneVerified stamps the verification time on the user row.
func (r *Repository) MarkPhoneVerified(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("phone_verified_at", at).Error
}

// TouchLastLogin records the login time on the user row.
func (r *Repository) TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_login_at", at).Error
}

// CreateOTP persists a new verification code.
func (r *Repository) CreateOTP(ctx context.Context, otp *models.OtpCode) (*models.OtpCode, error) {
	if err := r.db.WithContext(ctx).Create(otp).Error; err != nil {
		return nil, err
	}
	return otp, nil
}

// LatestOTP returns the newest code for the user and purpose, consumed or not.
func (r *Repository) LatestOTP(ctx context.Context, userID uuid.UUID, purpose enums.OtpPurpose) (*models.OtpCode, error) {
	var otp models.OtpCode
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// ConsumeOTP stamps the code as redeemed.
func (r *Repository) ConsumeOTP(ctx context.Context, otpID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OtpCode{}).
		Where("id = ?", otpID).
		UpdateColumn("consumed_at", at).Error
}

// BumpOTPAttempts increments the failed-attempt counter.
func (r *Repository) BumpOTPAttempts(ctx context.Context, otpID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OtpCode{}).
		Where("id = ?", otpID).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}
