package services

import (
	"context"

	"platerate/internal/models"
	"platerate/internal/store"
)

// tables groups the typed views every service reads and writes.
type tables struct {
	users         *store.Table[models.User]
	cars          *store.Table[models.Car]
	watched       *store.Table[models.WatchedCar]
	reviews       *store.Table[models.Review]
	flags         *store.Table[models.ReviewFlag]
	comments      *store.Table[models.Comment]
	votes         *store.Table[models.CommentVote]
	blocks        *store.Table[models.BlockedUser]
	notifications *store.Table[models.Notification]
}

func newTables(c *store.Client) tables {
	return tables{
		users:         store.NewTable[models.User](c),
		cars:          store.NewTable[models.Car](c),
		watched:       store.NewTable[models.WatchedCar](c),
		reviews:       store.NewTable[models.Review](c),
		flags:         store.NewTable[models.ReviewFlag](c),
		comments:      store.NewTable[models.Comment](c),
		votes:         store.NewTable[models.CommentVote](c),
		blocks:        store.NewTable[models.BlockedUser](c),
		notifications: store.NewTable[models.Notification](c),
	}
}

// publicUID returns uid, or "" when that user has opted out.
func (t tables) publicUID(ctx context.Context, uid string) string {
	if uid == "" {
		return ""
	}
	if u := t.users.FirstBy(ctx, store.Eq("uid", uid)); u != nil && u.OptedOut {
		return ""
	}
	return uid
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
