package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceImpl struct {
	user.UserRepository
	jwt.Service
}

func NewAuthService(userRepository user.UserRepository, jwtService jwt.Service) auth.AuthService {
	return &AuthServiceImpl{
		UserRepository: userRepository,
		Service:        jwtService,
	}
}

// Login implements auth.AuthService.
func (a *AuthServiceImpl) Login(ctx context.Context, loginReq auth.LoginRequest) (auth.TokenResponse, error) {
	userData, err := a.UserRepository.GetByEmail(ctx, loginReq.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return auth.TokenResponse{}, auth.ErrInvalidCredentials
		}
		return auth.TokenResponse{}, fmt.Errorf("failed to get operator by email: %w", err)
	}

	// Google-only operators have no password
	if userData.PasswordHash == nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*userData.PasswordHash), []byte(loginReq.Password)); err != nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}

	return a.issue(userData)
}

// LoginWithGoogle implements auth.AuthService. Operators are provisioned by
// an administrator; a google account only signs in when its email is
// already registered.
func (a *AuthServiceImpl) LoginWithGoogle(ctx context.Context, googleEmail string, googleID string) (auth.TokenResponse, error) {
	userData, err := a.UserRepository.LinkGoogleAccount(ctx, googleID, googleEmail)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			slog.Warn("Google sign-in for unregistered operator", "email", googleEmail)
			return auth.TokenResponse{}, auth.ErrOperatorNotRegistered
		}
		return auth.TokenResponse{}, fmt.Errorf("failed to link google account: %w", err)
	}

	return a.issue(userData)
}

func (a *AuthServiceImpl) issue(userData user.User) (auth.TokenResponse, error) {
	var tokenResponse auth.TokenResponse
	var err error

	tokenResponse.AccessToken, tokenResponse.AccessTokenExpiresIn, err = a.Service.GenerateAccessToken(userData.ID, userData.Email, userData.Role)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to create access token: %w", err)
	}

	return tokenResponse, nil
}

// Logout implements auth.AuthService.
func (a *AuthServiceImpl) Logout(ctx context.Context, token string) error {
	parsed, err := jwtauth.VerifyToken(a.JWTAuth(), token)
	if err != nil {
		return auth.ErrInvalidToken
	}

	a.Service.RevokeToken(token, parsed.Expiration())
	return nil
}

// StreamToken implements auth.AuthService.
func (a *AuthServiceImpl) StreamToken(ctx context.Context, operatorID string) (auth.StreamTokenResponse, error) {
	userData, err := a.UserRepository.GetByID(ctx, operatorID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return auth.StreamTokenResponse{}, auth.ErrInvalidToken
		}
		return auth.StreamTokenResponse{}, fmt.Errorf("failed to get operator: %w", err)
	}

	token, expiresIn, err := a.Service.GenerateStreamToken(userData.ID, userData.Role)
	if err != nil {
		return auth.StreamTokenResponse{}, fmt.Errorf("failed to create stream token: %w", err)
	}

	return auth.StreamTokenResponse{Token: token, ExpiresIn: expiresIn}, nil
}
