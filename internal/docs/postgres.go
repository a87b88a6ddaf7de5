package docs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"docuvault.org/internal/ids"
)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const documentColumns = `id, title, content, owner_id, status, coalesce(tags,''), view_count, public, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into documents(id, title, content, owner_id, status, tags, public)
		 values($1,$2,$3,$4,$5,$6,$7)
		 returning created_at, updated_at`,
		doc.ID, doc.Title, doc.Content, doc.OwnerID, string(doc.Status), joinTags(doc.Tags), doc.Public,
	)
	if err := row.Scan(&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+documentColumns+` from documents where id=$1`, id)
	return scanDocument(row)
}

func (s *PGStore) ListByOwner(ctx context.Context, ownerID string) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+documentColumns+` from documents where owner_id=$1 order by created_at desc`, ownerID)
	if err != nil {
		return nil, storeErr(err)
	}
	return collectDocuments(rows)
}

func (s *PGStore) ListAll(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+documentColumns+` from documents order by created_at desc`)
	if err != nil {
		return nil, storeErr(err)
	}
	return collectDocuments(rows)
}

func (s *PGStore) Update(ctx context.Context, doc *Document) error {
	res, err := s.db.ExecContext(ctx,
		`update documents
		 set title=$2, content=$3, status=$4, tags=$5, public=$6, updated_at=now()
		 where id=$1`,
		doc.ID, doc.Title, doc.Content, string(doc.Status), joinTags(doc.Tags), doc.Public,
	)
	if err != nil {
		return storeErr(err)
	}
	return requireDocRow(res)
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from documents where id=$1`, id)
	if err != nil {
		return storeErr(err)
	}
	return requireDocRow(res)
}

func (s *PGStore) IncrementViews(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update documents set view_count = view_count + 1 where id=$1`, id)
	if err != nil {
		return storeErr(err)
	}
	return requireDocRow(res)
}

func scanDocument(row interface{ Scan(dest ...any) error }) (*Document, error) {
	var (
		doc    Document
		status string
		tags   string
	)
	err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.OwnerID, &status,
		&tags, &doc.ViewCount, &doc.Public, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeErr(err)
	}
	doc.Status = Status(status)
	doc.Tags = splitTags(tags)
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]*Document, error) {
	defer rows.Close()
	var documents []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}
	return documents, rows.Err()
}

func requireDocRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// Tags are stored as a single comma-joined column; individual tags are
// validated to contain no commas before they reach the store.
func joinTags(tags []string) string { return strings.Join(tags, ",") }

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
