package store

import (
	"database/sql"
	"encoding/json"

	_ "modernc.org/sqlite"

	"github.com/yantra-mind/memoryd/core/apperr"
	"github.com/yantra-mind/memoryd/core/ident"
	"github.com/yantra-mind/memoryd/core/model"
)

// ColdStore is the on-disk metadata-only tier. Payload and confidence survive
// demotion to Cold so a later recall can still match on lexical/tag
// signals and the node can be re-embedded lazily on promotion back to
// Warm/Hot; the dense embedding itself is dropped to keep Cold cheap.
type ColdStore struct {
	db *sql.DB
}

// OpenCold opens (creating if absent) the sqlite-backed cold tier at path.
func OpenCold(path string) (*ColdStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStore, err, "open cold store %s", path)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS cold_nodes (
	id            BLOB PRIMARY KEY,
	kind          TEXT NOT NULL,
	payload       TEXT NOT NULL,
	tags          TEXT NOT NULL,
	mu            REAL NOT NULL,
	sigma2        REAL NOT NULL,
	n             INTEGER NOT NULL,
	tau_created   INTEGER NOT NULL,
	tau_accessed  INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.KindStore, err, "create cold schema")
	}
	return &ColdStore{db: db}, nil
}

// Close closes the underlying database handle.
func (c *ColdStore) Close() error { return c.db.Close() }

// Put demotes n into the cold tier, dropping its embedding.
func (c *ColdStore) Put(n *model.Node) error {
	tagsJSON, err := json.Marshal(n.TagList())
	if err != nil {
		return apperr.Wrap(apperr.KindStore, err, "marshal tags")
	}
	_, err = c.db.Exec(`
INSERT INTO cold_nodes (id, kind, payload, tags, mu, sigma2, n, tau_created, tau_accessed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	kind=excluded.kind, payload=excluded.payload, tags=excluded.tags,
	mu=excluded.mu, sigma2=excluded.sigma2, n=excluded.n,
	tau_created=excluded.tau_created, tau_accessed=excluded.tau_accessed`,
		idBytes(n.ID), string(n.Kind), n.Payload, string(tagsJSON),
		n.Confidence.Mu, n.Confidence.Sigma2, n.Confidence.N,
		n.TauCreated, n.TauAccessed)
	if err != nil {
		return apperr.Wrap(apperr.KindStore, err, "cold put %s", n.ID)
	}
	return nil
}

// Get loads a cold-tier node by id, without an embedding.
func (c *ColdStore) Get(id ident.ID) (*model.Node, error) {
	row := c.db.QueryRow(`SELECT kind, payload, tags, mu, sigma2, n, tau_created, tau_accessed FROM cold_nodes WHERE id = ?`, idBytes(id))
	var kind, payload, tagsJSON string
	var mu, sigma2 float64
	var n int
	var tauCreated, tauAccessed int64
	if err := row.Scan(&kind, &payload, &tagsJSON, &mu, &sigma2, &n, &tauCreated, &tauAccessed); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "node %s not in cold tier", id)
		}
		return nil, apperr.Wrap(apperr.KindStore, err, "cold get %s", id)
	}
	var tags []string
	_ = json.Unmarshal([]byte(tagsJSON), &tags)

	node := &model.Node{
		ID:          id,
		Kind:        model.Kind(kind),
		Payload:     []byte(payload),
		Confidence:  model.Confidence{Mu: mu, Sigma2: sigma2, N: n},
		TauCreated:  tauCreated,
		TauAccessed: tauAccessed,
		Tier:        model.TierCold,
		Delta:       model.DefaultDelta,
	}
	for _, t := range tags {
		node.AddTag(t)
	}
	return node, nil
}

// Delete removes id from the cold tier.
func (c *ColdStore) Delete(id ident.ID) error {
	_, err := c.db.Exec(`DELETE FROM cold_nodes WHERE id = ?`, idBytes(id))
	if err != nil {
		return apperr.Wrap(apperr.KindStore, err, "cold delete %s", id)
	}
	return nil
}

// Has reports whether id currently lives in the cold tier.
func (c *ColdStore) Has(id ident.ID) bool {
	row := c.db.QueryRow(`SELECT 1 FROM cold_nodes WHERE id = ?`, idBytes(id))
	var x int
	return row.Scan(&x) == nil
}

// Count returns the number of nodes in the cold tier.
func (c *ColdStore) Count() (int, error) {
	row := c.db.QueryRow(`SELECT COUNT(*) FROM cold_nodes`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.KindStore, err, "cold count")
	}
	return n, nil
}

func idBytes(id ident.ID) []byte {
	b := make([]byte, len(id))
	copy(b, id[:])
	return b
}
