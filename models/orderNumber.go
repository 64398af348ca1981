package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const orderNumberDateLayout = "20060102"

// OrderNumberSequence is a per-date counter row. Allocation happens under a
// row lock so two writers on the same date can never compute the same
// sequence. Gaps are acceptable (a rolled-back order abandons its number);
// duplicates are not.
type OrderNumberSequence struct {
	ID        int       `gorm:"primary_key" json:"id"`
	SeqDate   string    `gorm:"size:8;uniqueIndex;not null" json:"seq_date"`
	LastSeq   int       `gorm:"not null;default:0" json:"last_seq"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func FormatOrderNumber(date time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", date.Format(orderNumberDateLayout), seq)
}

// AcquireOrderNumberLock serializes first-allocation-of-the-day across
// instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that runs the allocation transaction.
func AcquireOrderNumberLock(tx *gorm.DB, seqDate string) error {
	lockName := fmt.Sprintf("ordernum:%s", seqDate)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire order number lock for seq_date=%s", seqDate)
	}
	return nil
}

func ReleaseOrderNumberLock(tx *gorm.DB, seqDate string) {
	lockName := fmt.Sprintf("ordernum:%s", seqDate)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// allocateOrderNumber must run on a transaction holding the advisory lock
// for the date; the FOR UPDATE row lock covers the steady state, the
// advisory lock closes the create race on the first order of a day.
func allocateOrderNumber(tx *gorm.DB, date time.Time) (string, error) {
	seqDate := date.Format(orderNumberDateLayout)

	var seq OrderNumberSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("seq_date = ?", seqDate).First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = OrderNumberSequence{SeqDate: seqDate, LastSeq: 1}
		if err := tx.Create(&seq).Error; err != nil {
			return "", err
		}
		return FormatOrderNumber(date, 1), nil
	}
	if err != nil {
		return "", err
	}

	seq.LastSeq++
	if err := tx.Model(&seq).Update("LastSeq", seq.LastSeq).Error; err != nil {
		return "", err
	}
	return FormatOrderNumber(date, seq.LastSeq), nil
}
