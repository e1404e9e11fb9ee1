package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// IsListOwner reports whether the list exists and is owned by accountID.
// A missing list yields (false, nil); any other DB error is returned with
// false, and the caller treats it as "not authorized" (fail closed).
func (s *Store) IsListOwner(ctx context.Context, listID string, accountID int64) (bool, error) {
	const q = `SELECT account_id FROM lists WHERE id = $1 LIMIT 1`

	var owner int64
	err := s.conn().QueryRow(ctx, q, listID).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return owner == accountID, nil
}
