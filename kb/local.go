package kb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source      TEXT    NOT NULL,
	chunk_index INTEGER NOT NULL,
	start_line  INTEGER NOT NULL,
	end_line    INTEGER NOT NULL,
	content     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS chunks_source ON chunks(source, chunk_index);
`

// local is the sqlite-backed knowledge base. Scoring is lexical: chunks are
// ranked by term overlap with the query, normalized so scores land in [0, 1].
type local struct {
	dir string
	db  *sql.DB
}

func openLocal(dir string) (*local, error) {
	indexDir := filepath.Join(dir, ".strand_index")
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(indexDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare index schema: %w", err)
	}
	return &local{dir: dir, db: db}, nil
}

func (l *local) Index(ctx context.Context, opts IndexOptions) (int, error) {
	opts = opts.withDefaults()

	files, err := collectFiles(l.dir, opts)
	if err != nil {
		return 0, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return 0, err
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (source, chunk_index, start_line, end_line, content) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer insert.Close()

	total := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", path, err)
		}
		source, err := filepath.Rel(l.dir, path)
		if err != nil {
			source = path
		}
		for i, chunk := range chunkFile(path, string(data), opts) {
			if _, err := insert.ExecContext(ctx, source, i, chunk.StartLine, chunk.EndLine, chunk.Content); err != nil {
				return 0, err
			}
			total++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func (l *local) IsIndexed(ctx context.Context) (bool, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *local) Search(ctx context.Context, query string, limit int, threshold float64) ([]Hit, error) {
	indexed, err := l.IsIndexed(ctx)
	if err != nil {
		return nil, err
	}
	if !indexed {
		return nil, fmt.Errorf("knowledge base not indexed, call .index() first")
	}

	queryTerms := termSet(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT source, chunk_index, start_line, end_line, content FROM chunks ORDER BY source, chunk_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			hit        Hit
			chunkIndex int
		)
		if err := rows.Scan(&hit.Source, &chunkIndex, &hit.StartLine, &hit.EndLine, &hit.Text); err != nil {
			return nil, err
		}
		hit.Score = lexicalScore(queryTerms, hit.Text)
		if hit.Score > 0 && hit.Score >= threshold {
			hits = append(hits, hit)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// collectFiles walks dir picking files by extension. Hidden directories,
// including the index itself, are skipped.
func collectFiles(dir string, opts IndexOptions) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory not found: %s", dir)
	}

	var files []string
	var walk func(string, bool) error
	walk = func(current string, isRoot bool) error {
		entries, err := os.ReadDir(current)
		if err != nil {
			return fmt.Errorf("failed to read directory: %w", err)
		}
		for _, entry := range entries {
			path := filepath.Join(current, entry.Name())
			if entry.IsDir() {
				if opts.Recursive && !strings.HasPrefix(entry.Name(), ".") {
					if err := walk(path, false); err != nil {
						return err
					}
				}
				continue
			}
			ext := filepath.Ext(entry.Name())
			for _, want := range opts.Extensions {
				if ext == want {
					files = append(files, path)
					break
				}
			}
		}
		return nil
	}
	if err := walk(dir, true); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// termSet lowercases and tokenizes text into its distinct terms.
func termSet(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(word) > 1 {
			terms[word] = struct{}{}
		}
	}
	return terms
}

// lexicalScore is the cosine similarity between the binary term vectors of
// the query and the chunk.
func lexicalScore(queryTerms map[string]struct{}, text string) float64 {
	chunkTerms := termSet(text)
	if len(chunkTerms) == 0 {
		return 0
	}
	overlap := 0
	for term := range queryTerms {
		if _, ok := chunkTerms[term]; ok {
			overlap++
		}
	}
	if overlap == 0 {
		return 0
	}
	return float64(overlap) / math.Sqrt(float64(len(queryTerms))*float64(len(chunkTerms)))
}
