package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// execIn expands slice arguments into IN lists and runs the statement with
// the driver's placeholders.
func execIn(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (sql.Result, error) {
	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("expand query: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(expanded), expandedArgs...)
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}
