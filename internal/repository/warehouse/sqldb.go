package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/smartcity/vnweather/internal/domain"
	"github.com/smartcity/vnweather/internal/log"
)

// SQLWarehouse implements domain.Warehouse on database/sql with the lib/pq
// driver. The handle is opened and closed around every call so no pool
// outlives a query.
type SQLWarehouse struct {
	dsn  string
	open func(driverName, dsn string) (*sql.DB, error)
}

// NewSQL prepares a database/sql backend. It does not dial.
func NewSQL(creds Credentials) *SQLWarehouse {
	return &SQLWarehouse{dsn: creds.DSN(), open: sql.Open}
}

func (w *SQLWarehouse) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	db, err := w.open("postgres", w.dsn)
	if err != nil {
		return fmt.Errorf("warehouse: open: %w: %v", domain.ErrWarehouseUnavailable, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warnw("warehouse: close handle failed", "error", err)
		}
	}()
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("warehouse: connect: %w: %v", domain.ErrWarehouseUnavailable, err)
	}
	defer conn.Close()

	return fn(conn)
}

// Query runs q on a fresh connection
func (w *SQLWarehouse) Query(ctx context.Context, q domain.Query) (*domain.Table, error) {
	var table *domain.Table
	err := w.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, q.SQL, q.Args...)
		if err != nil {
			return queryError(ctx, q, err)
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			return queryError(ctx, q, err)
		}
		types, err := rows.ColumnTypes()
		if err != nil {
			return queryError(ctx, q, err)
		}

		t := domain.NewTable(columns...)
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		for rows.Next() {
			if err := rows.Scan(dest...); err != nil {
				return queryError(ctx, q, err)
			}
			cells := make([]any, len(values))
			for i, v := range values {
				cells[i] = sqlCell(types[i].DatabaseTypeName(), v)
			}
			t.Append(cells...)
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

// Health opens a connection and pings it
func (w *SQLWarehouse) Health(ctx context.Context) error {
	return w.withConn(ctx, func(conn *sql.Conn) error {
		if err := conn.PingContext(ctx); err != nil {
			return fmt.Errorf("warehouse: ping: %w: %v", domain.ErrWarehouseUnavailable, err)
		}
		return nil
	})
}

// sqlCell maps lib/pq values onto table cell types using the column's
// database type name
func sqlCell(dbType string, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		switch strings.ToUpper(dbType) {
		case "TIMESTAMP", "DATE":
			return domain.NaiveTime{Wall: x}
		}
		return x
	case []byte:
		switch strings.ToUpper(dbType) {
		case "NUMERIC", "DECIMAL":
			f, err := strconv.ParseFloat(string(x), 64)
			if err != nil {
				return nil
			}
			return f
		}
		return string(x)
	case float32:
		return float64(x)
	case int32:
		return int64(x)
	}
	return v
}
