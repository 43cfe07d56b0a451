// Package postgres implements a Postgres-backed document repository.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/vshulcz/Golastic/internal/domain"
	"github.com/vshulcz/Golastic/internal/misc"
	"github.com/vshulcz/Golastic/internal/ports"
)

// Repo persists templates and documents in Postgres with retryable operations.
type Repo struct {
	db *sql.DB
}

var _ ports.DocumentRepo = (*Repo)(nil)

var retryablePGCodes = map[string]struct{}{
	pgerrcode.ConnectionException:                           {},
	pgerrcode.ConnectionDoesNotExist:                        {},
	pgerrcode.ConnectionFailure:                             {},
	pgerrcode.SQLClientUnableToEstablishSQLConnection:       {},
	pgerrcode.SQLServerRejectedEstablishmentOfSQLConnection: {},
	pgerrcode.TransactionResolutionUnknown:                  {},
	pgerrcode.ProtocolViolation:                             {},
	pgerrcode.SerializationFailure:                          {},
	pgerrcode.DeadlockDetected:                              {},
	pgerrcode.LockNotAvailable:                              {},
	pgerrcode.TooManyConnections:                            {},
	pgerrcode.AdminShutdown:                                 {},
	pgerrcode.CrashShutdown:                                 {},
	pgerrcode.CannotConnectNow:                              {},
	pgerrcode.QueryCanceled:                                 {},
}

// New returns a Postgres-backed repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// PutTemplate upserts a template by name.
func (r *Repo) PutTemplate(ctx context.Context, tpl domain.IndexTemplate) error {
	const q = `
INSERT INTO index_templates (name, patterns, aliases, body, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (name)
DO UPDATE SET patterns=EXCLUDED.patterns, aliases=EXCLUDED.aliases, body=EXCLUDED.body, updated_at=now();`
	op := func() error {
		_, err := r.db.ExecContext(ctx, q, tpl.Name, pq.Array(tpl.Patterns), pq.Array(tpl.Aliases), string(tpl.Body))
		return err
	}
	return misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op)
}

// Templates loads every template ordered by name.
func (r *Repo) Templates(ctx context.Context) ([]domain.IndexTemplate, error) {
	const q = `SELECT name, patterns, aliases, body FROM index_templates ORDER BY name`
	var out []domain.IndexTemplate
	op := func() error {
		rows, err := r.db.QueryContext(ctx, q)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()

		var res []domain.IndexTemplate
		for rows.Next() {
			var (
				t        domain.IndexTemplate
				patterns pq.StringArray
				aliases  pq.StringArray
				body     []byte
			)
			if err := rows.Scan(&t.Name, &patterns, &aliases, &body); err != nil {
				return err
			}
			t.Patterns, t.Aliases, t.Body = patterns, aliases, body
			res = append(res, t)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out = res
		return nil
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op); err != nil {
		return nil, err
	}
	return out, nil
}

// Index inserts documents inside a single transaction.
func (r *Repo) Index(ctx context.Context, docs []domain.StoredDocument) error {
	if len(docs) == 0 {
		return nil
	}
	const q = `INSERT INTO documents (idx, doc_type, source) VALUES ($1, $2, $3)`

	attempt := func() error {
		tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback()
		}()

		for _, d := range docs {
			if _, err := tx.ExecContext(ctx, q, d.Index, d.Type, string(d.Source)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}
	return misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, attempt)
}

// Search returns matching documents in insertion order.
func (r *Repo) Search(ctx context.Context, sq domain.SearchQuery) ([]domain.StoredDocument, error) {
	const q = `
SELECT seq, idx, doc_type, source FROM documents
WHERE ($1 = '' OR doc_type = $1)
  AND (cardinality($2::text[]) = 0 OR idx LIKE ANY($2))
ORDER BY seq
LIMIT NULLIF($3, 0)`
	var out []domain.StoredDocument
	op := func() error {
		rows, err := r.db.QueryContext(ctx, q, sq.Type, pq.Array(likePatterns(sq.Patterns)), sq.Limit)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()

		var res []domain.StoredDocument
		for rows.Next() {
			var (
				d   domain.StoredDocument
				src []byte
			)
			if err := rows.Scan(&d.Seq, &d.Index, &d.Type, &src); err != nil {
				return err
			}
			d.Source = src
			res = append(res, d)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out = res
		return nil
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes documents whose index matches any pattern.
func (r *Repo) Delete(ctx context.Context, patterns []string) (int, error) {
	if len(patterns) == 0 {
		return 0, nil
	}
	const q = `DELETE FROM documents WHERE idx LIKE ANY($1)`
	var n int64
	op := func() error {
		res, err := r.db.ExecContext(ctx, q, pq.Array(likePatterns(patterns)))
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Ping verifies the database connection using a short-lived context.
func (r *Repo) Ping(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	op := func() error {
		return r.db.PingContext(ctx)
	}
	return misc.Retry(ctx, misc.DefaultBackoff, isRetryablePG, op)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePatterns converts index patterns to LIKE patterns; a trailing '*'
// becomes '%'.
func likePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		prefix, wild := strings.CutSuffix(p, "*")
		p = likeEscaper.Replace(prefix)
		if wild {
			p += "%"
		}
		out = append(out, p)
	}
	return out
}

// IsRetryable reports whether the error should trigger a retry according to Postgres semantics.
func IsRetryable(err error) bool {
	return isRetryablePG(err)
}

func isRetryablePG(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return isRetryablePGCode(string(pqe.Code))
	}
	return false
}

func isRetryablePGCode(code string) bool {
	if _, ok := retryablePGCodes[code]; ok {
		return true
	}
	if strings.HasPrefix(code, "08") {
		return true
	}
	if strings.HasPrefix(code, "40") {
		return true
	}
	return false
}
