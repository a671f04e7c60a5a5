package ledger

import (
	"time"
)

// Entry is a single key to JSON record mapping in the ledger.
type Entry struct {
	Key       string `gorm:"primaryKey;size:512"`
	Value     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name.
func (Entry) TableName() string {
	return "ledger_entries"
}
