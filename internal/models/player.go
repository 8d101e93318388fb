package models

import (
	"database/sql"
	"time"
)

// Player is an internal registry entry. A Wyscout identifier binds to at
// most one player.
type Player struct {
	ID             int            `db:"id"`
	FullName       string         `db:"full_name"`
	KnownName      sql.NullString `db:"known_name"`
	IsProfessional bool           `db:"is_professional"`
	WyscoutID      sql.NullInt32  `db:"wyscout_id"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// HasExternalID reports whether the player is bound to a Wyscout identifier
func (p *Player) HasExternalID() bool {
	return p.WyscoutID.Valid && p.WyscoutID.Int32 > 0
}

// SearchNames returns the name fields candidates are matched against: the
// short known name (when present) and the full registry name.
func (p *Player) SearchNames() []string {
	names := make([]string, 0, 2)
	if p.KnownName.Valid && p.KnownName.String != "" {
		names = append(names, p.KnownName.String)
	}
	names = append(names, p.FullName)
	return names
}
