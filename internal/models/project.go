package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Genre     string    `json:"genre"`
	Mood      string    `json:"mood"`
	Theme     string    `json:"theme"`
	Prompt    string    `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Character roles used by the character stage. Free-text roles from manual
// entry are kept as-is.
const (
	RoleProtagonist = "protagonist"
	RoleAntagonist  = "antagonist"
	RoleWildcard    = "wildcard"
	RoleHost        = "host"
)

type Character struct {
	ID          uuid.UUID       `json:"id"`
	ProjectID   uuid.UUID       `json:"project_id"`
	Name        string          `json:"name"`
	Role        string          `json:"role"`
	Personality string          `json:"personality"`
	Background  string          `json:"background"`
	Goals       string          `json:"goals"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
