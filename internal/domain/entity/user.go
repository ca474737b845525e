package entity

import "time"

// User represents a registered chat user. The ID is the numeric user id
// assigned by the chat transport.
type User struct {
	ID        int64
	Username  string
	Nickname  string
	Timezone  string
	Email     string
	CreatedAt time.Time
}

// Location resolves the user's IANA timezone, falling back to the given
// default when the stored value is empty or invalid.
func (u *User) Location(fallback *time.Location) *time.Location {
	if u.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}
