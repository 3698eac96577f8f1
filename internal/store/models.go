package store

import (
	"encoding/json"
	"time"
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	ProfilePic   string
	AvatarColor  string
	Theme        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Collaborator struct {
	UserID     string `json:"userId"`
	Permission string `json:"permission"`
}

type Board struct {
	ID            string
	Name          string
	OwnerID       string
	OwnerName     string
	IsPrivate     bool
	Collaborators []Collaborator
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Document struct {
	ID            string
	Title         string
	Content       json.RawMessage
	Status        string
	BoardID       *string
	OwnerID       string
	OwnerName     string
	Collaborators []Collaborator
	LastModified  time.Time
}

type Task struct {
	ID         string
	DocumentID string
	CreatedBy  string
	Text       string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Version struct {
	ID            string
	DocumentID    string
	CreatedBy     string
	CreatedByName string
	Snapshot      []byte
	Summary       string
	CreatedAt     time.Time
}
