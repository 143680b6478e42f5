package models

type User struct {
	ID         string   `json:"userId"`
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	ProfileURL *string  `json:"profileUrl,omitempty"`
	FCMTokens  []string `json:"fcmTokens"`
}
