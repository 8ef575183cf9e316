// Package models holds the GORM models for Switchman's database-backed
// run-log store.
package models

import "time"

// RunBlock is one workflow invocation's log block. Blocks are append
// only: rows are inserted in run order and never updated or deleted.
type RunBlock struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Block     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index"`
}
