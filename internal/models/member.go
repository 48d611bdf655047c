package models

import (
	"time"

	"gorm.io/gorm"
)

// Member is the club member entity. Members are created and edited by admin
// tooling; the evaluation core only references them.
type Member struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Code     string `json:"code" gorm:"uniqueIndex;not null;size:50" validate:"required,max=50"`
	FullName string `json:"full_name" gorm:"not null;size:100;index" validate:"required,max=100"`

	// Skill tier and owning coach
	LevelID    *uint  `json:"level_id" gorm:"index"`
	CoachID    string `json:"coach_id" gorm:"not null;index;size:255"`
	ClassCount int    `json:"class_count" gorm:"not null;default:0" validate:"min=0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Level *Level `json:"level" gorm:"foreignKey:LevelID"`
	Coach User   `json:"coach" gorm:"foreignKey:CoachID"`
}

// Level is a skill tier reference.
type Level struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null;size:100"`
	Rank int    `json:"rank" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Member) TableName() string {
	return "members"
}

func (Level) TableName() string {
	return "levels"
}
