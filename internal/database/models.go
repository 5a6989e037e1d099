package database

import "time"

// Preference is the service tag a user last selected.
type Preference struct {
	UserID     string    `db:"user_id"`
	ServiceTag string    `db:"service_tag"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}
