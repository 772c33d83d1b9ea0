//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-presence/errors"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	emailPrefix = "user:email:"
	idPrefix    = "user:id:"
)

type IUserRepository interface {
	CreateUser(email, fullName, hashedPassword string) (string, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id string) (User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the domain-friendly representation of an account.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// CreateUser persists a new account and returns its generated ID.
// The email index and the record are written in the same transaction.
func (u UserRepository) CreateUser(email, fullName, hashedPassword string) (string, error) {
	user := User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(email),
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	data, err := marshalUser(user)
	if err != nil {
		return "", err
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte(emailPrefix + user.Email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.ErrUserAlreadyExists
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(emailKey, []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set([]byte(idPrefix+user.ID), data)
	})
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// GetUserByEmail resolves the email index then loads the record.
func (u UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(emailPrefix + normalizeEmail(email)))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		user, err = readUser(txn, string(id))
		return err
	})
	return user, mapNotFound(err)
}

func (u UserRepository) GetUserByID(id string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = readUser(txn, id)
		return err
	})
	return user, mapNotFound(err)
}

// ScanUsers calls fn for every stored account, in id order.
// It only reads, so it also works on a store opened read-only.
func ScanUsers(db *badger.DB, fn func(User) error) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(idPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var user User
			err := it.Item().Value(func(val []byte) error {
				var err error
				user, err = unmarshalUser(val)
				return err
			})
			if err != nil {
				return fmt.Errorf("key %s: %w", it.Item().Key(), err)
			}
			if err := fn(user); err != nil {
				return err
			}
		}
		return nil
	})
}

func readUser(txn *badger.Txn, id string) (User, error) {
	item, err := txn.Get([]byte(idPrefix + id))
	if err != nil {
		return User{}, err
	}
	var user User
	err = item.Value(func(val []byte) error {
		user, err = unmarshalUser(val)
		return err
	})
	return user, err
}

func mapNotFound(err error) error {
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUserNotFound
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func marshalUser(user User) ([]byte, error) {
	record, err := structpb.NewStruct(map[string]any{
		"id":           user.ID,
		"email":        user.Email,
		"fullName":     user.FullName,
		"passwordHash": user.PasswordHash,
		"roles":        lo.ToAnySlice(user.Roles),
		"createdAt":    float64(user.CreatedAt.Unix()),
	})
	if err != nil {
		return nil, fmt.Errorf("build user record: %w", err)
	}
	data, err := proto.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal failed: %w", err)
	}
	return data, nil
}

func unmarshalUser(data []byte) (User, error) {
	var record structpb.Struct
	if err := proto.Unmarshal(data, &record); err != nil {
		return User{}, fmt.Errorf("unmarshal failed: %w", err)
	}
	fields := record.GetFields()
	roles := lo.FilterMap(fields["roles"].GetListValue().GetValues(), func(v *structpb.Value, _ int) (string, bool) {
		return v.GetStringValue(), v.GetStringValue() != ""
	})
	return User{
		ID:           fields["id"].GetStringValue(),
		Email:        fields["email"].GetStringValue(),
		FullName:     fields["fullName"].GetStringValue(),
		PasswordHash: fields["passwordHash"].GetStringValue(),
		Roles:        roles,
		CreatedAt:    time.Unix(int64(fields["createdAt"].GetNumberValue()), 0).UTC(),
	}, nil
}
