package services

import (
	"chat-presence/auth"
	"chat-presence/domain/presence"
	"chat-presence/errors"
	"chat-presence/repositories"
	"fmt"
)

type IAuthService interface {
	Login(email, password string) (Session, error)
	Register(email, password, fullName string) (Session, error)
	CheckStatus(principalID presence.PrincipalID) (Session, error)
}

type Token string

func (t Token) String() string {
	return string(t)
}

// Session is what a client needs to open a gateway connection.
type Session struct {
	Token    Token
	UserID   string
	FullName string
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenManager
	hashParams     auth.Argon2Params
}

func NewAuthService(repo repositories.IUserRepository, tokens *auth.TokenManager, hashParams auth.Argon2Params) IAuthService {
	return &AuthService{userRepository: repo, tokens: tokens, hashParams: hashParams}
}

func (s *AuthService) Register(email, password, fullName string) (Session, error) {
	// 1. Validate business rules before any expensive cryptographic operation.
	if err := auth.ValidateRegister(auth.RegisterRequest{
		Email:    email,
		Password: password,
		FullName: fullName,
	}); err != nil {
		return Session{}, err
	}

	// 2. Hash in the service layer, the repository never sees plain passwords.
	hashedPassword, err := s.hashParams.Hash(password)
	if err != nil {
		return Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist
	userID, err := s.userRepository.CreateUser(email, fullName, hashedPassword)
	if err != nil {
		return Session{}, err // ErrUserAlreadyExists if email is taken
	}

	return s.issue(repositories.User{ID: userID, FullName: fullName, Roles: []string{auth.RoleUser}})
}

func (s *AuthService) Login(email, password string) (Session, error) {
	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration
		return Session{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return Session{}, errors.ErrInvalidCredentials
	}

	return s.issue(user)
}

// CheckStatus renews the token of an already authenticated principal.
func (s *AuthService) CheckStatus(principalID presence.PrincipalID) (Session, error) {
	user, err := s.userRepository.GetUserByID(string(principalID))
	if err != nil {
		return Session{}, err
	}
	return s.issue(user)
}

func (s *AuthService) issue(user repositories.User) (Session, error) {
	token, err := s.tokens.Generate(user.ID, user.Roles)
	if err != nil {
		return Session{}, errors.ErrTokenGeneration
	}
	return Session{Token: Token(token), UserID: user.ID, FullName: user.FullName}, nil
}
