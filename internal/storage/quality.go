package storage

// Quality-violation event kinds (error taxonomy class b).
const (
	QualityOffListTag   = "off_list_tag"
	QualityParseFailure = "parse_failure"
	QualityBadLabel     = "bad_label"
)

// AddQualityEvent records one validation failure. The batch continues; these
// feed the per-run quality metrics (e.g. off-list tag ratio).
func (s *Store) AddQualityEvent(itemID, kind, detail string) error {
	_, err := s.db.Exec(
		`INSERT INTO quality_events (period, item_id, kind, detail) VALUES (?, ?, ?, ?)`,
		s.period, itemID, kind, detail,
	)
	return err
}

// CountQualityEvents returns the period's event count for one kind.
func (s *Store) CountQualityEvents(kind string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM quality_events WHERE period = ? AND kind = ?`,
		s.period, kind,
	).Scan(&count)
	return count, err
}
