package storage

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS classified_items (
		period               TEXT NOT NULL,
		item_id              TEXT NOT NULL,
		source_type          TEXT NOT NULL,
		raw_text             TEXT NOT NULL,
		topic                TEXT DEFAULT '',
		topic_confidence     REAL DEFAULT 0,
		sentiment            TEXT DEFAULT '',
		sentiment_confidence REAL DEFAULT 0,
		detail_tags          TEXT DEFAULT '',
		detail_confidence    REAL DEFAULT 0,
		classified_at        DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (period, item_id)
	);
	CREATE INDEX IF NOT EXISTS idx_items_topic ON classified_items(period, topic);

	CREATE TABLE IF NOT EXISTS review_records (
		period               TEXT NOT NULL,
		item_id              TEXT NOT NULL,
		text                 TEXT NOT NULL,
		auto_topic           TEXT NOT NULL,
		auto_sentiment       TEXT NOT NULL,
		auto_category_tags   TEXT DEFAULT '',
		review_topic         TEXT DEFAULT '',
		review_sentiment     TEXT DEFAULT '',
		review_category_tags TEXT DEFAULT '',
		tags_reviewed        INTEGER DEFAULT 0,
		selection_reason     TEXT NOT NULL,
		exported_at          DATETIME DEFAULT CURRENT_TIMESTAMP,
		reviewed_at          DATETIME,
		PRIMARY KEY (period, item_id)
	);

	CREATE TABLE IF NOT EXISTS quality_events (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		period      TEXT NOT NULL,
		item_id     TEXT DEFAULT '',
		kind        TEXT NOT NULL,
		detail      TEXT DEFAULT '',
		occurred_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_quality_period_kind ON quality_events(period, kind);
	`
	if _, err = db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}
