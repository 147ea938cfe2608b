package outbox

import "gorm.io/gorm"

// supportsRowLocks reports whether the dialect understands SELECT ... FOR
// UPDATE. sqlite has no row locks and runs single-writer in tests.
func supportsRowLocks(tx *gorm.DB) bool {
	if tx == nil || tx.Dialector == nil {
		return false
	}
	return tx.Dialector.Name() != "sqlite"
}
