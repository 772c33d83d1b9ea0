package main

import (
	"bytes"
	"chat-presence/repositories"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestPrintUsers(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	_, err = repositories.NewUserRepository(db).CreateUser("alice@example.com", "Alice", "hash")
	req.NoError(err)

	var out bytes.Buffer
	req.NoError(printUsers(&out, db))

	req.Contains(out.String(), "alice@example.com")
	req.Contains(out.String(), "Alice")
	req.NotContains(out.String(), "hash")
}
