package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/anjiri1684/smart_roommate/apperrors"
	"github.com/anjiri1684/smart_roommate/models"
	"github.com/anjiri1684/smart_roommate/notifications"
	"github.com/anjiri1684/smart_roommate/utils"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	MinPasswordLength = 6
	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72
	ResetTokenTTL     = time.Hour

	ForgotPasswordMessage = "If that email exists, a reset link has been sent."
)

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	AppBaseURL string
}

type RegisterInput struct {
	Name          string `json:"name" validate:"required,max=120"`
	Email         string `json:"email" validate:"required,email,max=255"`
	Password      string `json:"password" validate:"required,min=6,max=72"`
	Birthdate     string `json:"birthdate" validate:"required"`
	TermsAccepted bool   `json:"termsAccepted"`
	EmailOptIn    bool   `json:"emailOptIn"`
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService struct {
	users  UserStore
	mailer notifications.Mailer
	cfg    AuthConfig
	log    *zap.Logger
	Now    func() time.Time
}

func NewAuthService(users UserStore, mailer notifications.Mailer, cfg AuthConfig, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if mailer == nil {
		mailer = notifications.NewNoopMailer(log)
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 72 * time.Hour
	}
	return &AuthService{users: users, mailer: mailer, cfg: cfg, log: log, Now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Validation("Name is required.")
	}
	if !in.TermsAccepted {
		return nil, apperrors.Validation("You must accept the terms and conditions.")
	}
	now := s.Now()
	birthdate, err := ParseBirthdate(in.Birthdate, now)
	if err != nil {
		return nil, err
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	age := models.AgeOn(birthdate, now)
	user := &models.User{
		Name:          name,
		Email:         normalizeEmail(in.Email),
		Password:      hashed,
		Birthdate:     &birthdate,
		Age:           &age,
		TermsAccepted: true,
		EmailOptIn:    in.EmailOptIn,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("Email already used")
		}
		return nil, apperrors.Internal("Failed to create user", err)
	}
	s.log.Info("user registered", zap.Uint("user_id", user.ID))

	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.Validation("Missing fields")
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Unauthenticated("Invalid credentials")
		}
		return nil, apperrors.Internal("Server error", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperrors.Unauthenticated("Invalid credentials")
	}
	return s.issue(user)
}

// ForgotPassword answers the same way whether or not the address is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.Validation("Email is required.")
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Internal("Server error", err)
	}

	token, hash, err := utils.NewResetToken()
	if err != nil {
		return apperrors.Internal("Failed to generate reset token", err)
	}
	expires := s.Now().Add(ResetTokenTTL)
	user.ResetTokenHash = &hash
	user.ResetTokenExpiresAt = &expires
	if err := s.users.SaveUser(ctx, user); err != nil {
		return apperrors.Internal("Failed to save reset token", err)
	}

	link := fmt.Sprintf("%s/reset-password/%s", s.cfg.AppBaseURL, token)
	text := "Reset your password using this link: " + link
	htmlBody := fmt.Sprintf(`<p>Reset your password using this link:</p><p><a href="%s">%s</a></p>`, html.EscapeString(link), html.EscapeString(link))
	if err := s.mailer.Send(ctx, user.Email, user.Name, "Reset your SmartRoommate password", text, htmlBody); err != nil {
		s.log.Error("reset email failed", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.Validation("Missing fields")
	}

	user, err := s.users.GetUserByResetTokenHash(ctx, utils.HashToken(token), s.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Validation("Invalid or expired token.")
		}
		return apperrors.Internal("Server error", err)
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	user.Password = hashed
	user.ResetTokenHash = nil
	user.ResetTokenExpiresAt = nil
	if err := s.users.SaveUser(ctx, user); err != nil {
		return apperrors.Internal("Server error", err)
	}
	s.log.Info("password reset", zap.Uint("user_id", user.ID))
	return nil
}

// hashPassword applies the length bounds shared by registration and reset, then bcrypts.
func hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", apperrors.Validation(fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperrors.Validation(fmt.Sprintf("Password must be at most %d bytes.", MaxPasswordLength))
	}
	if err != nil {
		return "", apperrors.Internal("Failed to hash password", err)
	}
	return string(hashed), nil
}

// IssueToken signs an HS256 token carrying the user id.
func (s *AuthService) IssueToken(userID uint) (string, error) {
	return SignToken(s.cfg.JWTSecret, userID, s.Now().Add(s.cfg.TokenTTL))
}

func SignToken(secret string, userID uint, expires time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     expires.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to create token", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
