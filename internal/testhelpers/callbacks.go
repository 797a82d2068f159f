package testhelpers

import (
	"testing"

	"gorm.io/gorm"
)

// FailCreates makes every insert into table fail with err until the test ends.
func FailCreates(t *testing.T, db *gorm.DB, table string, err error) {
	t.Helper()

	name := "testhelpers:fail_create:" + table
	if regErr := db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(err)
		}
	}); regErr != nil {
		t.Fatalf("failed to register create callback: %v", regErr)
	}
	t.Cleanup(func() {
		_ = db.Callback().Create().Remove(name)
	})
}
