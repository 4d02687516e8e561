package db

const schemaSQL = `
-- ===========================================================================
-- ASSETS
-- ===========================================================================

CREATE TABLE IF NOT EXISTS images (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  key TEXT,
  name TEXT,
  data TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_images_key ON images(key) WHERE key IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_images_name ON images(name);

-- ===========================================================================
-- THEMES
-- ===========================================================================

CREATE TABLE IF NOT EXISTS themes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  slug TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  colors TEXT NOT NULL DEFAULT '[]',
  fonts TEXT NOT NULL DEFAULT '[]',
  radii TEXT NOT NULL DEFAULT '{}',
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_themes_name ON themes(name);

-- ===========================================================================
-- SCHEDULES
-- ===========================================================================

CREATE TABLE IF NOT EXISTS schedules (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  theme_id INTEGER,
  week_start TEXT NOT NULL DEFAULT 'mon',
  week_anchor TEXT NOT NULL,
  timezone TEXT NOT NULL DEFAULT 'UTC',
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now')),
  FOREIGN KEY (theme_id) REFERENCES themes(id)
);

CREATE INDEX IF NOT EXISTS idx_schedules_name ON schedules(name);
CREATE INDEX IF NOT EXISTS idx_schedules_updated_at ON schedules(updated_at);

-- image_id/background_image_id reference images(id) but are not declared as
-- foreign keys: an undo can restore a row whose image was garbage collected,
-- and reads resolve missing images to null.
CREATE TABLE IF NOT EXISTS schedule_days (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  schedule_id INTEGER NOT NULL,
  day TEXT NOT NULL,
  enabled INTEGER NOT NULL DEFAULT 0,
  game_name TEXT NOT NULL DEFAULT '',
  time TEXT NOT NULL DEFAULT '',
  image_id INTEGER,
  background_color_token TEXT,
  background_image_id INTEGER,
  notes TEXT,
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now')),
  FOREIGN KEY (schedule_id) REFERENCES schedules(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_schedule_days_schedule_day ON schedule_days(schedule_id, day);

-- ===========================================================================
-- CANVAS COMPONENTS
-- ===========================================================================

CREATE TABLE IF NOT EXISTS components (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  schedule_id INTEGER NOT NULL,
  kind TEXT NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  x REAL NOT NULL DEFAULT 0,
  y REAL NOT NULL DEFAULT 0,
  width REAL NOT NULL DEFAULT 0,
  height REAL NOT NULL DEFAULT 0,
  rotation REAL NOT NULL DEFAULT 0,
  z_index INTEGER NOT NULL DEFAULT 0,
  visible INTEGER NOT NULL DEFAULT 1,
  locked INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now')),
  FOREIGN KEY (schedule_id) REFERENCES schedules(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_components_schedule_id ON components(schedule_id);
CREATE INDEX IF NOT EXISTS idx_components_kind ON components(kind);
CREATE INDEX IF NOT EXISTS idx_components_z_index ON components(z_index);
CREATE INDEX IF NOT EXISTS idx_components_updated_at ON components(updated_at);

CREATE TABLE IF NOT EXISTS component_props (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  component_id INTEGER NOT NULL UNIQUE,
  kind TEXT NOT NULL,
  data TEXT NOT NULL DEFAULT '{}',
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now')),
  FOREIGN KEY (component_id) REFERENCES components(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_component_props_kind ON component_props(kind);

-- ===========================================================================
-- GLOBAL SINGLETON
-- ===========================================================================

-- current_schedule_id is deliberately not a foreign key: the pointer may
-- briefly dangle after a schedule is removed, and EnsureCurrentSchedule
-- repairs it on the next read.
CREATE TABLE IF NOT EXISTS global (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  current_schedule_id INTEGER,
  export_scale INTEGER NOT NULL DEFAULT 2,
  sidebar_open INTEGER NOT NULL DEFAULT 1,
  hero_image_id INTEGER,
  history_snapshot_id INTEGER,
  history_schedule_id INTEGER
);

-- ===========================================================================
-- UNDO/REDO HISTORY
-- ===========================================================================

CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  schedule_id INTEGER NOT NULL,
  prev TEXT,
  next TEXT NOT NULL,
  reason TEXT,
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  FOREIGN KEY (schedule_id) REFERENCES schedules(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_snapshots_schedule_id ON snapshots(schedule_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON snapshots(created_at);

-- ===========================================================================
-- HYBRID SETTINGS
-- ===========================================================================

CREATE TABLE IF NOT EXISTS settings_blobs (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`
