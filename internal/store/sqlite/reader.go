package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"marketqa/internal/model"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names registered by the two SQLite drivers.
const (
	DriverCGO  = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPure = "sqlite"  // modernc.org/sqlite
)

// ReaderConfig configures the SQLite reader.
type ReaderConfig struct {
	DBPath string // path to the market database, e.g. "data/market.db"
	Driver string // DriverCGO (default) or DriverPure
}

// Reader provides read-only access to the market database.
// It implements model.MarketStore.
type Reader struct {
	db     *sql.DB
	driver string
}

var _ model.MarketStore = (*Reader)(nil)

// NewReader opens a read-only SQLite connection and pings it.
func NewReader(cfg ReaderConfig) (*Reader, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverCGO
	}
	db, err := sql.Open(driver, dsn(driver, cfg.DBPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping %s: %w", cfg.DBPath, err)
	}

	log.Printf("[sqlite-reader] opened %s (driver=%s)", cfg.DBPath, driver)
	return &Reader{db: db, driver: driver}, nil
}

// dsn builds a read-only connection string in each driver's dialect.
func dsn(driver, path string) string {
	if driver == DriverPure {
		return "file:" + path + "?mode=ro&_pragma=busy_timeout(5000)"
	}
	return "file:" + path + "?mode=ro&_busy_timeout=5000"
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// TickerExists reports whether table has a row for ticker. Only the known
// market tables are accepted.
func (r *Reader) TickerExists(ctx context.Context, table, ticker string) (bool, error) {
	col, ok := tickerColumn[table]
	if !ok {
		return false, fmt.Errorf("sqlite ticker lookup: unknown table %q", table)
	}
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM `+table+` WHERE `+col+` = ? LIMIT 1`, ticker,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite query %s ticker: %w", table, err)
	}
	return true, nil
}

// tickerColumn maps each table to its ticker column.
var tickerColumn = map[string]string{
	model.TableFundamentals:   "ticker",
	model.TableInsider:        "ticker",
	model.TableOptions:        "Symbol",
	model.TablePriceData:      "Ticker",
	model.TableArticleTickers: "ticker",
}

// LatestFundamentals returns the ticker's rows on the latest snapshot date
// of the whole table. A ticker missing from that snapshot yields no rows.
func (r *Reader) LatestFundamentals(ctx context.Context, ticker string) (*model.TabularRows, error) {
	return r.table(ctx, model.IntentFundamentals, `
		SELECT ticker, date, sector, recommendationKey, targetMeanPrice,
		       forwardPE, trailingPE, returnOnEquity, profitMargins
		FROM Fundamentals
		WHERE date = (SELECT MAX(date) FROM Fundamentals) AND ticker = ?
	`, ticker)
}

// InsiderTransactions returns transactions dated on or after since.
func (r *Reader) InsiderTransactions(ctx context.Context, ticker string, since time.Time) (*model.TabularRows, error) {
	q := `
		SELECT transaction_date, ticker, executive, executive_title,
		       acquisition_or_disposal, shares, share_price
		FROM Insider_Transactions
		WHERE transaction_date >= ?`
	args := []any{since.Format("2006-01-02")}
	if ticker != "" {
		q += ` AND ticker = ?`
		args = append(args, ticker)
	}
	q += ` ORDER BY transaction_date DESC`
	return r.table(ctx, model.IntentInsiderTransactions, q, args...)
}

// UnusualOptions returns contracts where volume exceeds open interest and
// 100 contracts, highest ratio first.
func (r *Reader) UnusualOptions(ctx context.Context, ticker string, limit int) (*model.TabularRows, error) {
	q := `
		SELECT Symbol, Type, Strike, ExpDate, Volume, OpenInterest, VolOverOI, IV, Delta
		FROM Options_Contracts
		WHERE VolOverOI > 1.0 AND Volume > 100`
	var args []any
	if ticker != "" {
		q += ` AND Symbol = ?`
		args = append(args, ticker)
	}
	q += ` ORDER BY VolOverOI DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.table(ctx, model.IntentOptionsActivity, q, args...)
}

// PriceHistory returns the latest limit bars for ticker, newest first.
func (r *Reader) PriceHistory(ctx context.Context, ticker string, limit int) ([]model.PriceBar, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT Date, Open, High, Low, Close, Volume
		FROM Price_Data
		WHERE Ticker = ?
		ORDER BY Date DESC
		LIMIT ?
	`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query Price_Data: %w", err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var (
			rawDate                any
			open, high, low, close sql.NullFloat64
			volume                 sql.NullFloat64
		)
		if err := rows.Scan(&rawDate, &open, &high, &low, &close, &volume); err != nil {
			return nil, fmt.Errorf("sqlite scan Price_Data: %w", err)
		}
		date, err := ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("sqlite scan Price_Data date: %w", err)
		}
		if !close.Valid {
			log.Printf("[sqlite-reader] skipping %s bar %s with NULL close", ticker, date.Format("2006-01-02"))
			continue
		}
		bars = append(bars, model.PriceBar{
			Ticker: ticker,
			Date:   date,
			Open:   orClose(open, close),
			High:   orClose(high, close),
			Low:    orClose(low, close),
			Close:  close.Float64,
			Volume: int64(volume.Float64),
		})
	}
	return bars, rows.Err()
}

func orClose(v, close sql.NullFloat64) float64 {
	if v.Valid {
		return v.Float64
	}
	return close.Float64
}

// News returns the latest limit articles linked to ticker, ordered by
// publication time and then relevance.
func (r *Reader) News(ctx context.Context, ticker string, limit int) (*model.TabularRows, error) {
	return r.table(ctx, model.IntentNews, `
		SELECT a.time_published, a.title, a.summary, a.source, a.sentiment_label, atr.relevance_score
		FROM Articles a
		JOIN Article_Ticker_Relationships atr ON a.article_id = atr.article_id
		WHERE atr.ticker = ?
		ORDER BY a.time_published DESC, atr.relevance_score DESC
		LIMIT ?
	`, ticker, limit)
}

// Tables lists every table with its columns in declaration order.
func (r *Reader) Tables(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query sqlite_master: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite scan sqlite_master: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(names))
	for _, name := range names {
		cols, err := r.columns(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = cols
	}
	return out, nil
}

func (r *Reader) columns(ctx context.Context, table string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("sqlite table_info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("sqlite scan table_info %s: %w", table, err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// table runs q and returns its rows with the result set's column names as
// headers.
func (r *Reader) table(ctx context.Context, intent model.Intent, q string, args ...any) (*model.TabularRows, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query %s: %w", intent, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite columns %s: %w", intent, err)
	}
	headers := make([]string, len(cols))
	for i, c := range cols {
		// strip "a." style qualifiers some drivers keep
		if dot := strings.LastIndexByte(c, '.'); dot >= 0 {
			c = c[dot+1:]
		}
		headers[i] = c
	}

	out := &model.TabularRows{Intent: intent, Headers: headers}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlite scan %s: %w", intent, err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out.Rows = append(out.Rows, vals)
	}
	return out, rows.Err()
}

// Ping checks the connection.
func (r *Reader) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}

// ParseDate converts a scanned DATE value into UTC midnight.
func ParseDate(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return truncateDay(x), nil
	case string:
		return parseDateString(x)
	case []byte:
		return parseDateString(string(x))
	case int64:
		return truncateDay(time.Unix(x, 0)), nil
	case nil:
		return time.Time{}, fmt.Errorf("NULL date")
	}
	return time.Time{}, fmt.Errorf("unsupported date type %T", v)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

func parseDateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
