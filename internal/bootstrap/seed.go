package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"anoa.com/volunteergoals/internal/entity"
	user "anoa.com/volunteergoals/internal/modules/user/service"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Goal{},
		&entity.ProgressHistory{},
		&entity.ActivityLog{},
		&entity.Setting{},
		&entity.GoalTemplate{},
	)
}

// SeedAdminUser creates the first administrator when no account with email
// exists yet.
func SeedAdminUser(db *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return errors.New("admin email and password are required")
	}

	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	hashed, err := user.HashPassword(password)
	if err != nil {
		return err
	}

	admin := entity.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hashed,
		Role:         entity.RoleAdmin,
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Println("✅ Admin user seeded successfully")
	log.Printf("   Email: %s", email)

	return nil
}

type defaultSetting struct {
	key         string
	kind        entity.SettingType
	value       string
	category    string
	description string
}

var defaultSettings = []defaultSetting{
	{"goals.default_priority", entity.SettingTypeString, `"medium"`, "goals", "Priority given to goals created without one"},
	{"goals.default_duration_days", entity.SettingTypeNumber, `7`, "goals", "Days between start and due date when a template sets none"},
	{"goals.categories", entity.SettingTypeArray, `["community","education","environment","health","fundraising"]`, "goals", "Suggested goal categories"},
	{"notifications.weekly_summary", entity.SettingTypeBoolean, `true`, "notifications", "Send volunteers a weekly progress summary"},
	{"reports.week_start", entity.SettingTypeString, `"sunday"`, "reports", "First day of the reporting week"},
}

// SeedSettings inserts the system defaults that are missing. Existing values
// are left alone so admin edits survive restarts.
func SeedSettings(db *gorm.DB) error {
	created := 0
	for _, d := range defaultSettings {
		if err := entity.ValidateSettingValue(d.kind, []byte(d.value)); err != nil {
			return fmt.Errorf("default setting %s: %w", d.key, err)
		}

		var count int64
		if err := db.Model(&entity.Setting{}).
			Where("scope = ? AND scope_id = ? AND key = ?", entity.SettingScopeSystem, "", d.key).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		setting := entity.Setting{
			Scope:       entity.SettingScopeSystem,
			Key:         d.key,
			Type:        d.kind,
			Value:       entity.JSONValue(d.value),
			Category:    d.category,
			Description: d.description,
		}
		if err := db.Create(&setting).Error; err != nil {
			return err
		}
		created++
	}

	if created > 0 {
		log.Printf("✅ Seeded %d default settings", created)
	}
	return nil
}
