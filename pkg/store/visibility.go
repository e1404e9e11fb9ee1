package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// BlockedOrMuted reports whether the viewer blocks or mutes any of targets,
// or the author blocks the viewer.
func (s *Store) BlockedOrMuted(ctx context.Context, viewerID int64, targets []int64, authorID int64) (bool, error) {
	const q = `
SELECT 1 FROM blocks
  WHERE (account_id = $1 AND target_account_id = ANY($2))
     OR (account_id = $3 AND target_account_id = $1)
UNION
SELECT 1 FROM mutes
  WHERE account_id = $1 AND target_account_id = ANY($2)
LIMIT 1`

	var hit int
	err := s.conn().QueryRow(ctx, q, viewerID, targets, authorID).Scan(&hit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DomainBlocked reports whether the viewer has blocked domain outright.
func (s *Store) DomainBlocked(ctx context.Context, viewerID int64, domain string) (bool, error) {
	const q = `SELECT 1 FROM account_domain_blocks WHERE account_id = $1 AND domain = $2 LIMIT 1`

	var hit int
	err := s.conn().QueryRow(ctx, q, viewerID, domain).Scan(&hit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
