// Package store persists world state to SQLite: entities, events, episodic
// memories, relationships, and placed blocks. A single Store value backs all
// of the persistence interfaces consumed by the runtime.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"genesis/internal/memory"
	"genesis/internal/relationship"
	"genesis/internal/voxel"
	"genesis/internal/world"
)

// Store is the SQLite persistence layer. database/sql serializes access; the
// WAL journal keeps single-writer contention cheap.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes the database at path, creating the directory and schema
// as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite tolerates one writer at a time.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		kind           TEXT NOT NULL,
		pos_x          REAL NOT NULL DEFAULT 0,
		pos_y          REAL NOT NULL DEFAULT 0,
		pos_z          REAL NOT NULL DEFAULT 0,
		facing_x       REAL NOT NULL DEFAULT 0,
		facing_z       REAL NOT NULL DEFAULT 1,
		alive          INTEGER NOT NULL DEFAULT 1,
		birth_tick     INTEGER NOT NULL DEFAULT 0,
		death_tick     INTEGER NOT NULL DEFAULT 0,
		personality    TEXT NOT NULL,
		state          TEXT NOT NULL,
		meta_awareness REAL NOT NULL DEFAULT 0,
		policy         TEXT
	);

	CREATE TABLE IF NOT EXISTS events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		tick       INTEGER NOT NULL,
		actor      TEXT NOT NULL,
		event_type TEXT NOT NULL,
		action     TEXT,
		params     TEXT,
		result     TEXT,
		reason     TEXT,
		pos_x      REAL NOT NULL DEFAULT 0,
		pos_y      REAL NOT NULL DEFAULT 0,
		pos_z      REAL NOT NULL DEFAULT 0,
		importance REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_actor ON events(actor);

	CREATE TABLE IF NOT EXISTS episodes (
		id          TEXT PRIMARY KEY,
		entity_id   TEXT NOT NULL,
		summary     TEXT NOT NULL,
		importance  REAL NOT NULL,
		tick        INTEGER NOT NULL,
		related     TEXT,
		loc_x       REAL NOT NULL DEFAULT 0,
		loc_y       REAL NOT NULL DEFAULT 0,
		loc_z       REAL NOT NULL DEFAULT 0,
		memory_type TEXT NOT NULL,
		ttl         INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_episodes_entity ON episodes(entity_id);

	CREATE TABLE IF NOT EXISTS relationships (
		source      TEXT NOT NULL,
		target      TEXT NOT NULL,
		trust       REAL NOT NULL DEFAULT 0,
		familiarity REAL NOT NULL DEFAULT 0,
		anger       REAL NOT NULL DEFAULT 0,
		gratitude   REAL NOT NULL DEFAULT 0,
		fear        REAL NOT NULL DEFAULT 0,
		respect     REAL NOT NULL DEFAULT 0,
		rivalry     REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (source, target)
	);

	CREATE TABLE IF NOT EXISTS blocks (
		x           INTEGER NOT NULL,
		y           INTEGER NOT NULL,
		z           INTEGER NOT NULL,
		color       TEXT NOT NULL,
		material    TEXT NOT NULL,
		placed_by   TEXT NOT NULL,
		placed_tick INTEGER NOT NULL,
		PRIMARY KEY (x, y, z)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// UpsertEntity writes the full entity record, replacing any previous row.
func (s *Store) UpsertEntity(ctx context.Context, entity world.Entity) error {
	personality, err := json.Marshal(entity.Personality)
	if err != nil {
		return fmt.Errorf("encode personality: %w", err)
	}
	state, err := json.Marshal(entity.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	var policy any
	if entity.Policy != nil {
		encoded, err := json.Marshal(entity.Policy)
		if err != nil {
			return fmt.Errorf("encode policy: %w", err)
		}
		policy = string(encoded)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (id, name, kind, pos_x, pos_y, pos_z, facing_x, facing_z,
			alive, birth_tick, death_tick, personality, state, meta_awareness, policy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, kind = excluded.kind,
			pos_x = excluded.pos_x, pos_y = excluded.pos_y, pos_z = excluded.pos_z,
			facing_x = excluded.facing_x, facing_z = excluded.facing_z,
			alive = excluded.alive, death_tick = excluded.death_tick,
			state = excluded.state, meta_awareness = excluded.meta_awareness,
			policy = excluded.policy`,
		entity.ID, entity.Name, string(entity.Kind),
		entity.Position.X, entity.Position.Y, entity.Position.Z,
		entity.Facing.X, entity.Facing.Z,
		boolInt(entity.Alive), entity.BirthTick, entity.DeathTick,
		string(personality), string(state), entity.MetaAwareness, policy)
	if err != nil {
		return fmt.Errorf("upsert entity %s: %w", entity.ID, err)
	}
	return nil
}

// LoadEntities returns every persisted entity, living and dead.
func (s *Store) LoadEntities(ctx context.Context) ([]*world.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, pos_x, pos_y, pos_z, facing_x, facing_z,
			alive, birth_tick, death_tick, personality, state, meta_awareness, policy
		FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	defer rows.Close()

	var out []*world.Entity
	for rows.Next() {
		var (
			entity      world.Entity
			kind        string
			alive       int
			personality string
			state       string
			policy      sql.NullString
		)
		if err := rows.Scan(&entity.ID, &entity.Name, &kind,
			&entity.Position.X, &entity.Position.Y, &entity.Position.Z,
			&entity.Facing.X, &entity.Facing.Z,
			&alive, &entity.BirthTick, &entity.DeathTick,
			&personality, &state, &entity.MetaAwareness, &policy); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entity.Kind = world.EntityKind(kind)
		entity.Alive = alive != 0
		if err := json.Unmarshal([]byte(personality), &entity.Personality); err != nil {
			return nil, fmt.Errorf("decode personality for %s: %w", entity.ID, err)
		}
		if err := json.Unmarshal([]byte(state), &entity.State); err != nil {
			return nil, fmt.Errorf("decode state for %s: %w", entity.ID, err)
		}
		if entity.State.LastConversationTicks == nil {
			entity.State.LastConversationTicks = make(map[string]int64)
		}
		if entity.State.KnownEntityIDs == nil {
			entity.State.KnownEntityIDs = make(map[string]bool)
		}
		if policy.Valid {
			var p world.AgentPolicy
			if err := json.Unmarshal([]byte(policy.String), &p); err != nil {
				return nil, fmt.Errorf("decode policy for %s: %w", entity.ID, err)
			}
			entity.Policy = &p
		}
		out = append(out, &entity)
	}
	return out, rows.Err()
}

// AppendEvent implements world.EventStore.
func (s *Store) AppendEvent(ctx context.Context, event world.Event) error {
	var params any
	if len(event.Params) > 0 {
		encoded, err := json.Marshal(event.Params)
		if err != nil {
			return fmt.Errorf("encode event params: %w", err)
		}
		params = string(encoded)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (tick, actor, event_type, action, params, result, reason,
			pos_x, pos_y, pos_z, importance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Tick, event.Actor, event.Type, event.Action, params,
		string(event.Result), event.Reason,
		event.Position.X, event.Position.Y, event.Position.Z, event.Importance)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// EventsSince returns persisted events with tick >= since, oldest first.
func (s *Store) EventsSince(ctx context.Context, since int64) ([]world.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, actor, event_type, action, params, result, reason,
			pos_x, pos_y, pos_z, importance
		FROM events WHERE tick >= ? ORDER BY id`, since)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var out []world.Event
	for rows.Next() {
		var (
			event  world.Event
			action sql.NullString
			params sql.NullString
			result sql.NullString
			reason sql.NullString
		)
		if err := rows.Scan(&event.Tick, &event.Actor, &event.Type, &action, &params, &result, &reason,
			&event.Position.X, &event.Position.Y, &event.Position.Z, &event.Importance); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Action = action.String
		event.Result = world.Result(result.String)
		event.Reason = reason.String
		if params.Valid && params.String != "" {
			if err := json.Unmarshal([]byte(params.String), &event.Params); err != nil {
				return nil, fmt.Errorf("decode event params: %w", err)
			}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// InsertEpisode implements memory.Store.
func (s *Store) InsertEpisode(ctx context.Context, episode memory.Episode) error {
	var related any
	if len(episode.Related) > 0 {
		encoded, err := json.Marshal(episode.Related)
		if err != nil {
			return fmt.Errorf("encode related entities: %w", err)
		}
		related = string(encoded)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (id, entity_id, summary, importance, tick, related,
			loc_x, loc_y, loc_z, memory_type, ttl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		episode.ID, episode.EntityID, episode.Summary, episode.Importance, episode.Tick,
		related, episode.Location.X, episode.Location.Y, episode.Location.Z,
		episode.Type, episode.TTL)
	if err != nil {
		return fmt.Errorf("insert episode %s: %w", episode.ID, err)
	}
	return nil
}

// EpisodesByEntity implements memory.Store.
func (s *Store) EpisodesByEntity(ctx context.Context, entityID string) ([]memory.Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_id, summary, importance, tick, related,
			loc_x, loc_y, loc_z, memory_type, ttl
		FROM episodes WHERE entity_id = ?`, entityID)
	if err != nil {
		return nil, fmt.Errorf("load episodes for %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []memory.Episode
	for rows.Next() {
		var (
			episode memory.Episode
			related sql.NullString
		)
		if err := rows.Scan(&episode.ID, &episode.EntityID, &episode.Summary,
			&episode.Importance, &episode.Tick, &related,
			&episode.Location.X, &episode.Location.Y, &episode.Location.Z,
			&episode.Type, &episode.TTL); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		if related.Valid && related.String != "" {
			if err := json.Unmarshal([]byte(related.String), &episode.Related); err != nil {
				return nil, fmt.Errorf("decode related entities: %w", err)
			}
		}
		out = append(out, episode)
	}
	return out, rows.Err()
}

// DeleteEpisodes implements memory.Store.
func (s *Store) DeleteEpisodes(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM episodes WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("delete episodes: %w", err)
	}
	return nil
}

// UpsertRelationship implements relationship.Store.
func (s *Store) UpsertRelationship(ctx context.Context, source, target string, relation relationship.Relation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relationships (source, target, trust, familiarity, anger, gratitude, fear, respect, rivalry)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, target) DO UPDATE SET
			trust = excluded.trust, familiarity = excluded.familiarity,
			anger = excluded.anger, gratitude = excluded.gratitude,
			fear = excluded.fear, respect = excluded.respect, rivalry = excluded.rivalry`,
		source, target, relation.Trust, relation.Familiarity, relation.Anger,
		relation.Gratitude, relation.Fear, relation.Respect, relation.Rivalry)
	if err != nil {
		return fmt.Errorf("upsert relationship %s->%s: %w", source, target, err)
	}
	return nil
}

// LoadRelationships seeds the manager with every persisted relation.
func (s *Store) LoadRelationships(ctx context.Context, manager *relationship.Manager) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, target, trust, familiarity, anger, gratitude, fear, respect, rivalry
		FROM relationships`)
	if err != nil {
		return fmt.Errorf("load relationships: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			source, target string
			relation       relationship.Relation
		)
		if err := rows.Scan(&source, &target, &relation.Trust, &relation.Familiarity,
			&relation.Anger, &relation.Gratitude, &relation.Fear,
			&relation.Respect, &relation.Rivalry); err != nil {
			return fmt.Errorf("scan relationship: %w", err)
		}
		manager.Seed(source, target, relation)
	}
	return rows.Err()
}

// UpsertBlock persists one placed block.
func (s *Store) UpsertBlock(ctx context.Context, block voxel.Block) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blocks (x, y, z, color, material, placed_by, placed_tick)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(x, y, z) DO UPDATE SET
			color = excluded.color, material = excluded.material,
			placed_by = excluded.placed_by, placed_tick = excluded.placed_tick`,
		block.Coord.X, block.Coord.Y, block.Coord.Z,
		block.Color, string(block.Material), block.PlacedBy, block.PlacedTick)
	if err != nil {
		return fmt.Errorf("upsert block: %w", err)
	}
	return nil
}

// DeleteBlock removes a persisted block.
func (s *Store) DeleteBlock(ctx context.Context, x, y, z int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blocks WHERE x = ? AND y = ? AND z = ?`, x, y, z)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	return nil
}

// LoadBlocks returns every persisted block.
func (s *Store) LoadBlocks(ctx context.Context) ([]voxel.Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT x, y, z, color, material, placed_by, placed_tick FROM blocks`)
	if err != nil {
		return nil, fmt.Errorf("load blocks: %w", err)
	}
	defer rows.Close()

	var out []voxel.Block
	for rows.Next() {
		var (
			block    voxel.Block
			material string
		)
		if err := rows.Scan(&block.Coord.X, &block.Coord.Y, &block.Coord.Z,
			&block.Color, &material, &block.PlacedBy, &block.PlacedTick); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		block.Material = voxel.Material(material)
		out = append(out, block)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
