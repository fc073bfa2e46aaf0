package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/shubhamforall/petstore-api/apperror"
	"github.com/shubhamforall/petstore-api/models"
)

// UserFinder looks principals up by email; unknown emails return gorm.ErrRecordNotFound.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Authenticator turns email/password pairs into signed session tokens.
type Authenticator struct {
	users  UserFinder
	tokens *TokenService
	// compared against when the email is unknown so both paths cost one bcrypt run
	decoy []byte
}

func NewAuthenticator(users UserFinder, tokens *TokenService) (*Authenticator, error) {
	decoy, err := bcrypt.GenerateFromPassword([]byte("decoy-password"), models.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("prepare decoy digest: %w", err)
	}
	return &Authenticator{users: users, tokens: tokens, decoy: decoy}, nil
}

// Authenticate returns the identity for valid credentials and InvalidCredentials otherwise.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, apperror.Internal(fmt.Errorf("lookup user: %w", err))
		}
		_ = bcrypt.CompareHashAndPassword(a.decoy, []byte(password))
		return Identity{}, apperror.InvalidCredentials()
	}
	if err := user.ComparePassword(password); err != nil {
		return Identity{}, apperror.InvalidCredentials()
	}
	return Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// Login authenticates and issues a token.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, error) {
	id, err := a.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	token, _, err := a.tokens.Issue(id)
	if err != nil {
		return "", apperror.Internal(fmt.Errorf("sign token: %w", err))
	}
	return token, nil
}
