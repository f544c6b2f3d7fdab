package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/stablehq/paddock/internal/identity/domain"
	"gorm.io/gorm"
)

type store struct{}

// Provide builds the gorm-backed user repository.
func Provide() identitydomain.Repository {
	return store{}
}

func (store) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*identitydomain.User, error) {
	var user identitydomain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (store) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*identitydomain.User, error) {
	var user identitydomain.User
	err := db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (store) ListByRole(ctx context.Context, db *gorm.DB, role string) ([]identitydomain.User, error) {
	var users []identitydomain.User
	err := db.WithContext(ctx).
		Where("roles LIKE ?", "%"+role+"%").
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	// The LIKE match is a coarse prefilter; confirm against the parsed role set.
	out := users[:0]
	for _, user := range users {
		if user.HasRole(role) {
			out = append(out, user)
		}
	}
	return out, nil
}

func (store) Insert(ctx context.Context, db *gorm.DB, user *identitydomain.User) error {
	return db.WithContext(ctx).Create(user).Error
}
