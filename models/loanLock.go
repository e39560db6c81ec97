package models

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireLoanPostingLock serializes ledger writes per loan across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB that will do the posting transaction.
func AcquireLoanPostingLock(tx *gorm.DB, loanId string) error {
	lockName := fmt.Sprintf("loan:%s", loanId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for loan_id=%s", loanId)
	}
	return nil
}

func ReleaseLoanPostingLock(tx *gorm.DB, loanId string) {
	lockName := fmt.Sprintf("loan:%s", loanId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
