package models

import "time"

// Upload represents a data file staged for the external analysis process.
type Upload struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"userId"`
	Filename   string    `json:"filename"`   // Name the client supplied
	StoredName string    `json:"storedName"` // Timestamp-prefixed name in the staging area
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"createdAt"`
}
