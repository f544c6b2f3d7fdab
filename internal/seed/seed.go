// Package seed bootstraps development accounts so a fresh database is usable
// immediately.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stablehq/paddock/internal/auth/password"
	identitydomain "github.com/stablehq/paddock/internal/identity/domain"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@paddock.app"
	defaultAdminPassword = "admin"
	defaultAdminDisplay  = "Paddock Admin"

	demoRiderEmail    = "rider@paddock.app"
	demoRiderPassword = "rider"
	demoRiderDisplay  = "Demo Rider"
	demoParentEmail   = "parent@paddock.app"
)

// EnsureDefaultUsers seeds an admin trainer and a demo minor rider. Existing
// rows are left untouched, so the seed is safe to run on every startup.
func EnsureDefaultUsers(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(ctx, tx, node, userSpec{
			Email:       defaultAdminEmail,
			Password:    defaultAdminPassword,
			DisplayName: defaultAdminDisplay,
			Roles:       strings.Join([]string{identitydomain.RoleAdmin, identitydomain.RoleTrainer}, ","),
		}); err != nil {
			return err
		}

		// A rider under 18 with a parent on file, so guardian redirection is
		// observable out of the box.
		birthday := time.Now().UTC().AddDate(-14, 0, 0).Truncate(24 * time.Hour)
		parentEmail := demoParentEmail
		return ensureUser(ctx, tx, node, userSpec{
			Email:       demoRiderEmail,
			Password:    demoRiderPassword,
			DisplayName: demoRiderDisplay,
			Roles:       identitydomain.RoleRider,
			Birthday:    &birthday,
			ParentEmail: &parentEmail,
		})
	})
}

type userSpec struct {
	Email       string
	Password    string
	DisplayName string
	Roles       string
	Birthday    *time.Time
	ParentEmail *string
}

func ensureUser(ctx context.Context, tx *gorm.DB, node *snowflake.Node, spec userSpec) error {
	var existing identitydomain.User
	err := tx.WithContext(ctx).Where("email = ?", spec.Email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := password.Hash(spec.Password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	user := identitydomain.User{
		ID:           node.Generate(),
		Email:        strings.ToLower(spec.Email),
		DisplayName:  spec.DisplayName,
		PasswordHash: &hashed,
		Birthday:     spec.Birthday,
		ParentEmail:  spec.ParentEmail,
		Roles:        spec.Roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return tx.WithContext(ctx).Create(&user).Error
}
