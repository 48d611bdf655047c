package models

import (
	"time"

	"gorm.io/gorm"
)

// Quiz is a self-scoring knowledge quiz. Read-only to the scoring engine.
type Quiz struct {
	ID                uint    `json:"id" gorm:"primaryKey"`
	Title             string  `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description       *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	PassingPercentage float64 `json:"passing_percentage" gorm:"not null" validate:"min=0,max=100"`
	Visible           bool    `json:"visible" gorm:"not null;default:true;index"`

	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []Question `json:"questions" gorm:"foreignKey:QuizID"`
}

// Question belongs to a quiz. Hidden questions are excluded from scoring
// entirely, not merely unscored.
type Question struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	QuizID  uint   `json:"quiz_id" gorm:"not null;index"`
	Text    string `json:"text" gorm:"type:text;not null" validate:"required,max=2000"`
	Points  int    `json:"points" gorm:"not null;default:10" validate:"min=1,max=100"`
	Visible bool   `json:"visible" gorm:"not null;default:true;index"`
	Order   int    `json:"order" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Quiz    Quiz     `json:"quiz" gorm:"foreignKey:QuizID"`
	Answers []Answer `json:"answers" gorm:"foreignKey:QuestionID"`
}

// Answer is one selectable option for a question.
type Answer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null" validate:"required,max=1000"`
	IsCorrect  bool   `json:"is_correct" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (Question) TableName() string {
	return "questions"
}

func (Answer) TableName() string {
	return "answers"
}
