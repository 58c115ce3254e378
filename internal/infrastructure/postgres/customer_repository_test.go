package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCustomerRepository(t *testing.T) {
	t.Run("defaults the table name", func(t *testing.T) {
		repo := NewCustomerRepository(nil, "", nil)
		assert.Equal(t, `"customers"`, repo.table.Sanitize())
	})

	t.Run("quotes a custom table", func(t *testing.T) {
		repo := NewCustomerRepository(nil, `bank"customers`, nil)
		assert.Equal(t, `"bank""customers"`, repo.table.Sanitize())
	})
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := Migrations.ReadDir(MigrationsDir)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
