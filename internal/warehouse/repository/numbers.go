package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/stockflow/stockflow-backend/pkg/database"
)

// nextDocumentNumber draws the next value from a per-kind Postgres
// sequence and formats it as PREFIX-YYYY-NNNNN. Sequences never reuse
// values, so numbers stay unique even across rolled-back drafts.
func nextDocumentNumber(ctx context.Context, q database.Queryer, sequence, prefix string) (string, error) {
	var n int64
	if err := q.GetContext(ctx, &n, `SELECT nextval($1)`, sequence); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%05d", prefix, time.Now().UTC().Year(), n), nil
}
