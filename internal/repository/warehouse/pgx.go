package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/smartcity/vnweather/internal/domain"
	"github.com/smartcity/vnweather/internal/log"
)

// PgxWarehouse implements domain.Warehouse over the postgres wire protocol.
// Every call dials its own connection and closes it before returning.
type PgxWarehouse struct {
	config *pgx.ConnConfig
}

// NewPgx prepares a pgx backend. It does not dial.
func NewPgx(creds Credentials) (*PgxWarehouse, error) {
	if !creds.Complete() {
		return nil, fmt.Errorf("warehouse: incomplete credentials (%s)", creds)
	}
	cfg, err := pgx.ParseConfig(creds.DSN())
	if err != nil {
		return nil, fmt.Errorf("warehouse: parse connection config (%s): %w", creds, err)
	}
	cfg.RuntimeParams["timezone"] = SessionTimeZone
	return &PgxWarehouse{config: cfg}, nil
}

// withConn dials one connection, hands it to fn and closes it on every
// exit path, panics included.
func (w *PgxWarehouse) withConn(ctx context.Context, fn func(conn *pgx.Conn) error) error {
	conn, err := pgx.ConnectConfig(ctx, w.config)
	if err != nil {
		return fmt.Errorf("warehouse: connect: %w: %v", domain.ErrWarehouseUnavailable, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := conn.Close(closeCtx); err != nil {
			log.Warnw("warehouse: close connection failed", "error", err)
		}
	}()
	return fn(conn)
}

// Query runs q on a fresh connection
func (w *PgxWarehouse) Query(ctx context.Context, q domain.Query) (*domain.Table, error) {
	var table *domain.Table
	err := w.withConn(ctx, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q.SQL, q.Args...)
		if err != nil {
			return queryError(ctx, q, err)
		}
		defer rows.Close()

		fields := rows.FieldDescriptions()
		columns := make([]string, len(fields))
		for i, f := range fields {
			columns[i] = f.Name
		}

		t := domain.NewTable(columns...)
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return queryError(ctx, q, err)
			}
			for i := range values {
				values[i] = pgxCell(fields[i].DataTypeOID, values[i])
			}
			t.Append(values...)
		}
		if err := rows.Err(); err != nil {
			return queryError(ctx, q, err)
		}
		table = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// Health dials and pings the warehouse
func (w *PgxWarehouse) Health(ctx context.Context) error {
	return w.withConn(ctx, func(conn *pgx.Conn) error {
		if err := conn.Ping(ctx); err != nil {
			return fmt.Errorf("warehouse: ping: %w: %v", domain.ErrWarehouseUnavailable, err)
		}
		return nil
	})
}

// pgxCell maps decoded pgx values onto table cell types
func pgxCell(oid uint32, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		if oid == pgtype.TimestampOID || oid == pgtype.DateOID {
			return domain.NaiveTime{Wall: x}
		}
		return x
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case float32:
		return float64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	}
	return v
}

// queryError classifies a failure after the connection was established. An
// expired or cancelled context counts as a connectivity failure; anything
// else is a query the warehouse rejected.
func queryError(ctx context.Context, q domain.Query, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("warehouse: %s: %w: %v", q.ID, domain.ErrWarehouseUnavailable, err)
	}
	return fmt.Errorf("warehouse: %s: %w: %v", q.ID, domain.ErrQueryFailed, err)
}
