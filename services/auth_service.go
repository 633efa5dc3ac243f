package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenTTL          = 24 * time.Hour
	minPasswordLength = 8
	// bcrypt игнорирует всё после 72 байт.
	maxPasswordLength = 72
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

type AuthService interface {
	Register(ctx context.Context, input RegisterUserInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, string, error)
	GetCurrentUser(ctx context.Context, userID int) (*models.User, error)
	IssueToken(user *models.User) (string, error)
}

type RegisterUserInput struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"display_name"`
	Country     *string `json:"country"`
}

// LoginInput accepts either a username or an email in Login.
type LoginInput struct {
	Login    string `json:"username"`
	Password string `json:"password"`
}

type authService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
	hashCost  int
	now       func() time.Time
	logger    *slog.Logger
}

func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, logger *slog.Logger) AuthService {
	return &authService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		hashCost:  bcrypt.DefaultCost,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    orDiscardLogger(logger),
	}
}

func (in RegisterUserInput) validate() error {
	errs := fieldErrors{}
	if !usernamePattern.MatchString(in.Username) {
		errs.add("username", "must be 3-32 characters: letters, digits or underscore")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		errs.add("email", "must be a valid email address")
	}
	if len(in.Password) < minPasswordLength {
		errs.add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	} else if len(in.Password) > maxPasswordLength {
		errs.add("password", fmt.Sprintf("must be at most %d bytes", maxPasswordLength))
	}
	if in.DisplayName != nil && len(*in.DisplayName) > 50 {
		errs.add("display_name", "must be at most 50 characters")
	}
	if in.Country != nil && !models.IsKnownCountry(*in.Country) {
		errs.add("country", "unknown country code")
	}
	return errs.err()
}

func (s *authService) Register(ctx context.Context, input RegisterUserInput) (*models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.DisplayName = trimmedPtr(input.DisplayName)
	if err := input.validate(); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		DisplayName:  input.DisplayName,
		Country:      input.Country,
		Role:         models.RoleUser,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, handleRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "User registered", slog.Int("user_id", user.ID), slog.String("username", user.Username))
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, string, error) {
	login := strings.TrimSpace(input.Login)
	if login == "" || input.Password == "" {
		return nil, "", ErrInvalidCredentials
	}

	var user *models.User
	var err error
	if strings.Contains(login, "@") {
		user, err = s.userRepo.GetUserByEmail(ctx, login)
	} else {
		user, err = s.userRepo.GetUserByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to compare password hash: %w", err)
	}

	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		// Вход всё равно успешен.
		s.logger.WarnContext(ctx, "Failed to update last login", slog.Int("user_id", user.ID), slog.Any("error", err))
	} else {
		user.LastLoginAt = &now
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	user.PasswordHash = ""
	return user, token, nil
}

func (s *authService) GetCurrentUser(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	name := user.Username
	if user.DisplayName != nil && *user.DisplayName != "" {
		name = *user.DisplayName
	}
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"name":    name,
		"exp":     now.Add(TokenTTL).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
