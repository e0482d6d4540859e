package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"marketqa/internal/model"
)

// Schema is the market database layout read by Reader. Ingestion lives
// outside this module; the schema is kept here so fixtures and local
// databases can be created with the same shape.
const Schema = `
	CREATE TABLE IF NOT EXISTS Fundamentals (
		ticker            TEXT NOT NULL,
		date              DATE NOT NULL,
		sector            TEXT,
		recommendationKey TEXT,
		targetMeanPrice   REAL,
		forwardPE         REAL,
		trailingPE        REAL,
		returnOnEquity    REAL,
		profitMargins     REAL,
		PRIMARY KEY (ticker, date)
	);

	CREATE TABLE IF NOT EXISTS Insider_Transactions (
		transaction_date        DATE NOT NULL,
		ticker                  TEXT NOT NULL,
		executive               TEXT,
		executive_title         TEXT,
		acquisition_or_disposal TEXT,
		shares                  REAL,
		share_price             REAL
	);

	CREATE TABLE IF NOT EXISTS Options_Contracts (
		Symbol       TEXT NOT NULL,
		Type         TEXT,
		Strike       REAL,
		ExpDate      DATE,
		Volume       INTEGER,
		OpenInterest INTEGER,
		VolOverOI    REAL,
		IV           REAL,
		Delta        REAL
	);

	CREATE TABLE IF NOT EXISTS Price_Data (
		Date   DATE NOT NULL,
		Open   REAL,
		High   REAL,
		Low    REAL,
		Close  REAL,
		Volume INTEGER,
		Ticker TEXT NOT NULL,
		PRIMARY KEY (Ticker, Date)
	);

	CREATE TABLE IF NOT EXISTS Articles (
		article_id      TEXT PRIMARY KEY,
		title           TEXT,
		summary         TEXT,
		time_published  TEXT,
		source          TEXT,
		sentiment_label TEXT
	);

	CREATE TABLE IF NOT EXISTS Article_Ticker_Relationships (
		article_id      TEXT NOT NULL,
		ticker          TEXT NOT NULL,
		relevance_score REAL,
		PRIMARY KEY (article_id, ticker)
	);
`

// WriterConfig configures the SQLite loader.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/market.db"
	Driver string // DriverCGO (default) or DriverPure
}

// Writer creates the market schema and bulk-loads rows. Reader never writes;
// Writer exists for fixtures and local databases.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB.
func (w *Writer) DB() *sql.DB { return w.db }

// NewWriter opens (creating if needed) a database and applies Schema.
func NewWriter(cfg WriterConfig) (*Writer, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverCGO
	}
	// Rollback journal, not WAL: readers open the file with mode=ro and
	// must not need to create -shm files.
	dsn := cfg.DBPath + "?_busy_timeout=5000"
	if driver == DriverPure {
		dsn = cfg.DBPath + "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

// InsertPriceBars upserts bars in a single transaction.
func (w *Writer) InsertPriceBars(ctx context.Context, bars []model.PriceBar) error {
	return w.batch(ctx, `
		INSERT OR REPLACE INTO Price_Data (Date, Open, High, Low, Close, Volume, Ticker)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, len(bars), func(i int) []any {
		b := bars[i]
		return []any{day(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume, b.Ticker}
	})
}

// Fundamental is one Fundamentals snapshot row.
type Fundamental struct {
	Ticker            string
	Date              time.Time
	Sector            string
	RecommendationKey string
	TargetMeanPrice   float64
	ForwardPE         float64
	TrailingPE        float64
	ReturnOnEquity    float64
	ProfitMargins     float64
}

// InsertFundamentals upserts fundamentals snapshots.
func (w *Writer) InsertFundamentals(ctx context.Context, rows []Fundamental) error {
	return w.batch(ctx, `
		INSERT OR REPLACE INTO Fundamentals (ticker, date, sector, recommendationKey, targetMeanPrice,
			forwardPE, trailingPE, returnOnEquity, profitMargins)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, len(rows), func(i int) []any {
		f := rows[i]
		return []any{f.Ticker, day(f.Date), f.Sector, f.RecommendationKey, f.TargetMeanPrice,
			f.ForwardPE, f.TrailingPE, f.ReturnOnEquity, f.ProfitMargins}
	})
}

// InsiderTransaction is one Insider_Transactions row.
type InsiderTransaction struct {
	Date      time.Time
	Ticker    string
	Executive string
	Title     string
	Action    string // "A" acquisition or "D" disposal
	Shares    float64
	Price     float64
}

// InsertInsiderTransactions appends insider transactions.
func (w *Writer) InsertInsiderTransactions(ctx context.Context, rows []InsiderTransaction) error {
	return w.batch(ctx, `
		INSERT INTO Insider_Transactions (transaction_date, ticker, executive, executive_title,
			acquisition_or_disposal, shares, share_price)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, len(rows), func(i int) []any {
		t := rows[i]
		return []any{day(t.Date), t.Ticker, t.Executive, t.Title, t.Action, t.Shares, t.Price}
	})
}

// OptionContract is one Options_Contracts row.
type OptionContract struct {
	Symbol       string
	Type         string // "call" or "put"
	Strike       float64
	ExpDate      time.Time
	Volume       int64
	OpenInterest int64
	IV           float64
	Delta        float64
}

// InsertOptionContracts appends contracts. VolOverOI is derived from
// Volume and OpenInterest.
func (w *Writer) InsertOptionContracts(ctx context.Context, rows []OptionContract) error {
	return w.batch(ctx, `
		INSERT INTO Options_Contracts (Symbol, Type, Strike, ExpDate, Volume, OpenInterest, VolOverOI, IV, Delta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, len(rows), func(i int) []any {
		o := rows[i]
		var ratio any
		if o.OpenInterest > 0 {
			ratio = float64(o.Volume) / float64(o.OpenInterest)
		}
		return []any{o.Symbol, o.Type, o.Strike, day(o.ExpDate), o.Volume, o.OpenInterest, ratio, o.IV, o.Delta}
	})
}

// Article is one Articles row with its ticker relevance scores.
type Article struct {
	ID           string
	Title        string
	Summary      string
	Published    time.Time
	Source       string
	Sentiment    string
	TickerScores map[string]float64
}

// InsertArticles upserts articles and their ticker relationships.
func (w *Writer) InsertArticles(ctx context.Context, rows []Article) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, a := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO Articles (article_id, title, summary, time_published, source, sentiment_label)
			VALUES (?, ?, ?, ?, ?, ?)
		`, a.ID, a.Title, a.Summary, a.Published.UTC().Format("2006-01-02T15:04:05Z"), a.Source, a.Sentiment)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert article %s: %w", a.ID, err)
		}
		for ticker, score := range a.TickerScores {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO Article_Ticker_Relationships (article_id, ticker, relevance_score)
				VALUES (?, ?, ?)
			`, a.ID, ticker, score)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("sqlite insert article ticker %s/%s: %w", a.ID, ticker, err)
			}
		}
	}
	return tx.Commit()
}

// batch executes stmt once per row inside a single transaction.
func (w *Writer) batch(ctx context.Context, stmt string, n int, args func(i int) []any) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	ps, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer ps.Close()

	for i := 0; i < n; i++ {
		if _, err := ps.ExecContext(ctx, args(i)...); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// DropTable removes a table. Used to simulate schema drift.
func (w *Writer) DropTable(ctx context.Context, table string) error {
	if _, ok := tickerColumn[table]; !ok && table != model.TableArticles {
		return fmt.Errorf("sqlite drop: unknown table %q", table)
	}
	_, err := w.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table)
	return err
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}

func day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
