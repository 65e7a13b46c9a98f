package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgxTx is the slice of pgx.Tx the upsert helpers need.
type pgxTx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// upsertBatchSize caps rows per statement to stay well under the
// Postgres parameter limit with the widest row shape.
const upsertBatchSize = 1000

// valuesPlaceholders renders "($1,$2),($3,$4),..." for a multi-row
// VALUES clause.
func valuesPlaceholders(rows, cols int) string {
	var b strings.Builder
	arg := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(arg))
			arg++
		}
		b.WriteByte(')')
	}
	return b.String()
}
