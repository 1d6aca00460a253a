// internal/registry/model.go
package registry

import (
	"time"

	"github.com/tamzrod/reader-provisioner/internal/record"
)

// ReaderConfig is the runtime identity assignment of one reader slot.
type ReaderConfig struct {
	RIndex    int       `gorm:"column:r_index;primaryKey;autoIncrement:false" json:"r_index"`
	ReaderID  string    `gorm:"column:reader_id;not null" json:"reader_id"`
	Portal    string    `gorm:"column:portal;not null" json:"portal"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ReaderConfig) TableName() string { return "reader_config" }

// Identity returns the row as a reader identity.
func (c ReaderConfig) Identity() record.Identity {
	return record.Identity{Index: c.RIndex, ReaderID: c.ReaderID, Portal: c.Portal}
}

// Patch is a partial update. Nil or blank fields are left unchanged.
type Patch struct {
	ReaderID *string `json:"reader_id"`
	Portal   *string `json:"portal"`
}
