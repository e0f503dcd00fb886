/*
Package food holds the nutrition knowledge base: a small sqlite table of food
facts imported from CSV, each row carrying an optional embedding vector used
by the retriever to pick context for coach prompts.
*/
package food

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"dietitian/internal/pkg/logx"
)

// csvColumns are the headers ImportCSV requires, in the order Item fields
// are populated.
var csvColumns = []string{"Food", "Calories", "Protein", "Fat", "Carbohydrates", "Nutrition Density"}

// Item is one food entry of the knowledge base.
type Item struct {
	ID       int64
	Name     string
	Calories float64
	Protein  float64
	Fat      float64
	Carbs    float64
	Density  float64
}

// Document renders the item as the retrieval text that gets embedded and,
// when the item matches a query, spliced into the coach prompt.
func (it Item) Document() string {
	return fmt.Sprintf("Food: %s, Calories: %s kcal, Protein: %s g, Fat: %s g, Carbohydrates: %s g, Nutrition Density: %s",
		it.Name, num(it.Calories), num(it.Protein), num(it.Fat), num(it.Carbs), num(it.Density))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Embedded pairs an item with its stored embedding blob.
type Embedded struct {
	Item      Item
	Embedding []byte
}

// Store is the sqlite-backed food knowledge base.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the knowledge base at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open food database: %w", err)
	}

	s := &Store{
		db:  db,
		log: logx.Logger().With().Str("component", "FoodStore").Logger(),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize food schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS foods (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL UNIQUE,
        calories REAL NOT NULL,
        protein REAL NOT NULL,
        fat REAL NOT NULL,
        carbohydrates REAL NOT NULL,
        nutrition_density REAL NOT NULL,
        embedding BLOB
    );
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ImportCSV loads food rows from the CSV at path into the knowledge base and
// returns how many new rows were inserted. Rows whose food name is already
// present are left untouched, so re-importing the same file is a no-op and
// keeps existing embeddings. A missing file is reported as os.ErrNotExist.
func (s *Store) ImportCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open food data file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols, err := columnIndexes(header)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
        INSERT INTO foods (name, calories, protein, fat, carbohydrates, nutrition_density)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(name) DO NOTHING
    `

	inserted := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		item, err := itemFromRow(row, cols)
		if err != nil {
			return 0, fmt.Errorf("invalid csv line %d: %w", line, err)
		}

		res, err := tx.Exec(insert, item.Name, item.Calories, item.Protein, item.Fat, item.Carbs, item.Density)
		if err != nil {
			return 0, fmt.Errorf("failed to insert food %q: %w", item.Name, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}

	s.log.Info().Str("path", path).Int("inserted", inserted).Msg("Food data import finished")
	return inserted, nil
}

// columnIndexes maps each required csv column name to its position in the
// header. Extra columns are ignored.
func columnIndexes(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(csvColumns))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range csvColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("csv is missing column %q", name)
		}
	}
	return cols, nil
}

func itemFromRow(row []string, cols map[string]int) (Item, error) {
	field := func(name string) string {
		return strings.TrimSpace(row[cols[name]])
	}

	item := Item{Name: field("Food")}
	if item.Name == "" {
		return Item{}, errors.New("empty food name")
	}

	for _, col := range []struct {
		name string
		dst  *float64
	}{
		{"Calories", &item.Calories},
		{"Protein", &item.Protein},
		{"Fat", &item.Fat},
		{"Carbohydrates", &item.Carbs},
		{"Nutrition Density", &item.Density},
	} {
		v, err := strconv.ParseFloat(field(col.name), 64)
		if err != nil {
			return Item{}, fmt.Errorf("column %q: %w", col.name, err)
		}
		*col.dst = v
	}
	return item, nil
}

// Count reports how many foods the knowledge base holds.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM foods`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count foods: %w", err)
	}
	return n, nil
}

// PendingEmbedding returns the items that do not have an embedding yet,
// ordered by id.
func (s *Store) PendingEmbedding() ([]Item, error) {
	rows, err := s.db.Query(`
        SELECT id, name, calories, protein, fat, carbohydrates, nutrition_density
        FROM foods
        WHERE embedding IS NULL
        ORDER BY id
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending foods: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Calories, &it.Protein, &it.Fat, &it.Carbs, &it.Density); err != nil {
			return nil, fmt.Errorf("failed to scan food: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// SetEmbedding stores the embedding blob for the food with the given id.
func (s *Store) SetEmbedding(id int64, embedding []byte) error {
	if _, err := s.db.Exec(`UPDATE foods SET embedding = ? WHERE id = ?`, embedding, id); err != nil {
		return fmt.Errorf("failed to store embedding for food %d: %w", id, err)
	}
	return nil
}

// EmbeddedItems returns every item that already has an embedding, ordered by
// id.
func (s *Store) EmbeddedItems() ([]Embedded, error) {
	rows, err := s.db.Query(`
        SELECT id, name, calories, protein, fat, carbohydrates, nutrition_density, embedding
        FROM foods
        WHERE embedding IS NOT NULL
        ORDER BY id
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query embedded foods: %w", err)
	}
	defer rows.Close()

	var items []Embedded
	for rows.Next() {
		var e Embedded
		if err := rows.Scan(&e.Item.ID, &e.Item.Name, &e.Item.Calories, &e.Item.Protein,
			&e.Item.Fat, &e.Item.Carbs, &e.Item.Density, &e.Embedding); err != nil {
			return nil, fmt.Errorf("failed to scan embedded food: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
