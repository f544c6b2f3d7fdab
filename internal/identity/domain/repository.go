package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	ListByRole(ctx context.Context, db *gorm.DB, role string) ([]User, error)
	Insert(ctx context.Context, db *gorm.DB, user *User) error
}
