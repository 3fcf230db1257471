package db

import (
	"testing"

	"platerate/internal/models"
)

func TestInitRejectsUnknownScheme(t *testing.T) {
	if _, err := Init("mysql://localhost/x"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestInitSQLiteMigratesAndSeeds(t *testing.T) {
	database, err := Init("sqlite://:memory:")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for _, table := range []string{"cars", "watched_cars", "users", "reviews", "comments", "comment_votes", "blocked_users", "notifications", "review_flags"} {
		if !database.Migrator().HasTable(table) {
			t.Errorf("table %s not migrated", table)
		}
	}

	database.Create(&models.User{UID: "mod-1", Name: "Mod"})
	database.Create(&models.User{UID: "user-1", Name: "User"})
	SeedModerators(database, []string{"mod-1", "ghost"})

	var mod, user models.User
	database.First(&mod, "uid = ?", "mod-1")
	database.First(&user, "uid = ?", "user-1")
	if !mod.IsModerator {
		t.Error("mod-1 should be a moderator")
	}
	if user.IsModerator {
		t.Error("user-1 should not be a moderator")
	}
}
