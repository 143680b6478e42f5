package models

import (
	"sort"

	"github.com/samber/lo"
)

type Chat struct {
	ID      string   `json:"id"`
	UserIDs []string `json:"userIds"`
}

// ChatKey returns the participant list a chat is stored under:
// duplicates removed, sorted ascending.
func ChatKey(userIDs []string) []string {
	key := lo.Uniq(userIDs)
	sort.Strings(key)
	return key
}

// Recipients returns the participants other than senderID, each listed once.
func (c Chat) Recipients(senderID string) []string {
	return lo.Without(lo.Uniq(c.UserIDs), senderID)
}
