package models

import (
	"gorm.io/gorm"
)

// SystemConfig is a flat key/value settings store.
type SystemConfig struct {
	gorm.Model
	ConfigKey   string `gorm:"uniqueIndex;not null" json:"config_key"`
	ConfigValue string `gorm:"type:text" json:"config_value"`
	Description string `gorm:"type:text" json:"description"`
}
