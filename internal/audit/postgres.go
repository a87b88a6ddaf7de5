package audit

import (
	"context"
	"database/sql"
	"encoding/json"
)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, entry *Entry) error {
	details, _ := json.Marshal(entry.Details)
	_, err := s.db.ExecContext(ctx,
		`insert into audit_log(id, actor_id, username, action, resource_type, resource_id, outcome, details, ip_address, user_agent, occurred_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		entry.ID, nullable(entry.ActorID), entry.Username, string(entry.Action),
		nullable(entry.ResourceType), nullable(entry.ResourceID), string(entry.Outcome),
		details, nullable(entry.IPAddress), nullable(entry.UserAgent), entry.OccurredAt,
	)
	return err
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]*Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`select id, coalesce(actor_id,''), username, action, coalesce(resource_type,''), coalesce(resource_id,''), outcome, details, coalesce(ip_address,''), coalesce(user_agent,''), occurred_at
		 from audit_log
		 where ($1 = '' or action = $1)
		   and ($2 = '' or actor_id = $2)
		 order by occurred_at desc
		 limit $3`,
		string(f.Action), f.ActorID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			e       Entry
			action  string
			outcome string
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Username, &action, &e.ResourceType, &e.ResourceID,
			&outcome, &details, &e.IPAddress, &e.UserAgent, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		e.Outcome = Outcome(outcome)
		_ = json.Unmarshal(details, &e.Details)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
