package model

import (
	"time"

	"github.com/google/uuid"
)

// TaskModel mirrors the 'tasks' table. Timestamps are set by the use case, not by GORM.
type TaskModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_tasks_user_created,priority:1"`
	User        *UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Title       string     `gorm:"type:varchar(200);not null"`
	Description *string    `gorm:"type:text"`
	Completed   bool       `gorm:"not null"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime:false;index:idx_tasks_user_created,priority:2,sort:desc"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime:false"`
	CompletedAt *time.Time
}

// TableName explicitly sets the table name for GORM.
func (TaskModel) TableName() string {
	return "tasks"
}

// All lists every model in migration order.
func All() []any {
	return []any{&UserModel{}, &TaskModel{}}
}
