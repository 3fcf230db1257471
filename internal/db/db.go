package db

import (
	"fmt"
	"log"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"platerate/internal/models"
)

// Init opens the database named by databaseURL and migrates the schema.
// postgres:// selects Postgres, sqlite:// the embedded SQLite driver.
func Init(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	isSQLite := false

	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		dialector = postgres.Open(databaseURL)
		log.Println("Connecting to PostgreSQL database...")
	case strings.HasPrefix(databaseURL, "sqlite://"):
		dsn := strings.TrimPrefix(databaseURL, "sqlite://")
		dialector = sqlite.Open(dsn)
		isSQLite = true
		log.Println("Connecting to SQLite database at", dsn)
	default:
		return nil, fmt.Errorf("invalid DATABASE_URL %q: must start with postgres:// or sqlite://", databaseURL)
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	if isSQLite {
		// one connection: SQLite serializes writers and :memory: is per-connection
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}

	log.Println("Database connection established")

	if err := Migrate(database); err != nil {
		return nil, err
	}
	return database, nil
}

// Migrate creates or updates every table the engine uses.
func Migrate(database *gorm.DB) error {
	err := database.AutoMigrate(
		&models.User{},
		&models.Car{},
		&models.WatchedCar{},
		&models.Review{},
		&models.ReviewFlag{},
		&models.Comment{},
		&models.CommentVote{},
		&models.BlockedUser{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Println("Database migration completed")
	return nil
}

// SeedModerators grants the moderator role to the given uids.
func SeedModerators(database *gorm.DB, uids []string) {
	if len(uids) == 0 {
		return
	}
	res := database.Model(&models.User{}).Where("uid IN ?", uids).Update("is_moderator", true)
	if res.Error != nil {
		log.Printf("Failed to seed moderators: %v", res.Error)
		return
	}
	log.Printf("Moderator role granted to %d of %d configured users", res.RowsAffected, len(uids))
}
