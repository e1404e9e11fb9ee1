package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrTokenNotFound is returned when no non-revoked token row matches.
var ErrTokenNotFound = errors.New("token not found")

// TokenRow is the result of resolving a bearer token: the account it
// belongs to, the account's preferred languages, the token's granted
// scopes (still space-separated, as stored), and the device it was issued
// to, if any.
type TokenRow struct {
	AccountID       int64
	Username        string
	ChosenLanguages []string
	Scope           string
	DeviceID        *int64
}

// ResolveToken joins the token table to the users/accounts tables and
// left-joins the device table, filtered to non-revoked rows, in a single
// round trip.
func (s *Store) ResolveToken(ctx context.Context, token string) (*TokenRow, error) {
	const q = `
SELECT u.account_id, a.username, u.chosen_languages, t.scope, d.id
FROM oauth_access_tokens t
JOIN users u ON u.id = t.resource_owner_id
JOIN accounts a ON a.id = u.account_id
LEFT JOIN devices d ON d.account_id = u.account_id AND d.token = $1
WHERE t.token = $1 AND t.revoked_at IS NULL
LIMIT 1`

	row := s.conn().QueryRow(ctx, q, token)

	var r TokenRow
	if err := row.Scan(&r.AccountID, &r.Username, &r.ChosenLanguages, &r.Scope, &r.DeviceID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &r, nil
}
