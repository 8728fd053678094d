package auth

import (
	"context"
)

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (TokenResponse, error)
	LoginWithGoogle(ctx context.Context, email string, googleID string) (TokenResponse, error)
	Logout(ctx context.Context, token string) error
	StreamToken(ctx context.Context, operatorID string) (StreamTokenResponse, error)
}
