package mysql

import (
	"errors"
	"fmt"
	"testing"

	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestDialect_IsDuplicate(t *testing.T) {
	d := Dialect{}
	assert.True(t, d.IsDuplicate(&driver.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, d.IsDuplicate(fmt.Errorf("insert: %w", &driver.MySQLError{Number: 1062})))
	assert.False(t, d.IsDuplicate(&driver.MySQLError{Number: 1213}))
	assert.False(t, d.IsDuplicate(errors.New("boom")))
}

func TestDialect_KeepsPlaceholders(t *testing.T) {
	q := "SELECT 1 FROM t WHERE a = ?"
	assert.Equal(t, q, Dialect{}.Rebind(q))
	assert.Contains(t, Dialect{}.ClaimSQL(), "ON DUPLICATE KEY UPDATE")
}
