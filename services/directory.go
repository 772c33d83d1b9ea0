package services

import (
	"chat-presence/domain/presence"
	"chat-presence/errors"
	"chat-presence/repositories"
	"context"
	"fmt"
	"strings"
)

// Directory resolves display names from the account store.
type Directory struct {
	userRepository repositories.IUserRepository
}

func NewDirectory(repo repositories.IUserRepository) *Directory {
	return &Directory{userRepository: repo}
}

// LookupName fails with ErrDirectoryLookup when the principal is unknown
// or has no usable name.
func (d *Directory) LookupName(ctx context.Context, principalID presence.PrincipalID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrDirectoryLookup, err)
	}
	user, err := d.userRepository.GetUserByID(string(principalID))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrDirectoryLookup, err)
	}
	name := strings.TrimSpace(user.FullName)
	if name == "" {
		return "", fmt.Errorf("%w: principal %s has no display name", errors.ErrDirectoryLookup, principalID)
	}
	return name, nil
}
