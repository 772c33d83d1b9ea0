package repositories

import (
	"chat-presence/errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *badger.DB {
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUserRepository_Create_And_Get(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openInMemory(t))

	// Given a user is created
	id, err := repository.CreateUser(" Alice@Example.com ", " Alice Liddell ", "$argon2id$hash")
	req.NoError(err)
	req.NotEmpty(id)

	// When fetching by email, whatever the case
	byEmail, err := repository.GetUserByEmail("alice@example.com")
	req.NoError(err)

	// Then the record is intact
	req.Equal(id, byEmail.ID)
	req.Equal("alice@example.com", byEmail.Email)
	req.Equal("Alice Liddell", byEmail.FullName)
	req.Equal("$argon2id$hash", byEmail.PasswordHash)
	req.Equal([]string{"user"}, byEmail.Roles)
	req.False(byEmail.CreatedAt.IsZero())

	// And fetching by id returns the same user
	byID, err := repository.GetUserByID(id)
	req.NoError(err)
	req.Equal(byEmail, byID)
}

func TestUserRepository_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openInMemory(t))

	_, err := repository.CreateUser("bob@example.com", "Bob", "hash")
	req.NoError(err)

	_, err = repository.CreateUser("BOB@example.com", "Other Bob", "hash")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_Not_Found(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openInMemory(t))

	_, err := repository.GetUserByEmail("ghost@example.com")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repository.GetUserByID("missing")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestScanUsers(t *testing.T) {
	req := require.New(t)
	db := openInMemory(t)
	repository := NewUserRepository(db)
	_, err := repository.CreateUser("alice@example.com", "Alice", "hash")
	req.NoError(err)
	_, err = repository.CreateUser("bob@example.com", "Bob", "hash")
	req.NoError(err)

	var names []string
	err = ScanUsers(db, func(user User) error {
		names = append(names, user.FullName)
		return nil
	})

	req.NoError(err)
	req.ElementsMatch([]string{"Alice", "Bob"}, names)
}
