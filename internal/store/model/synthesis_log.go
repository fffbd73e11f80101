package model

import "gorm.io/datatypes"

// SynthesisLogModel maps to 'synthesis_log': one row per analysis call.
type SynthesisLogModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	SessionID     string         `gorm:"column:session_id;index"`
	Purpose       string         `gorm:"column:purpose;index"`
	Provider      string         `gorm:"column:provider"`
	Prompt        string         `gorm:"column:prompt"`
	Response      string         `gorm:"column:response"`
	Error         string         `gorm:"column:error"`
	Parsed        datatypes.JSON `gorm:"column:parsed"`
	DurationMS    int64          `gorm:"column:duration_ms"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (SynthesisLogModel) TableName() string { return "synthesis_log" }

// Failed reports whether the call ended in a fallback.
func (m SynthesisLogModel) Failed() bool { return m.Error != "" }
