package store

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	api_token     TEXT UNIQUE NOT NULL,
	plan          TEXT NOT NULL DEFAULT 'basic',
	devices_limit INTEGER NOT NULL DEFAULT 5,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_users_api_token ON users(api_token);

CREATE TABLE IF NOT EXISTS devices (
	device_id            TEXT PRIMARY KEY,
	user_id              INTEGER NOT NULL REFERENCES users(id),
	device_token         TEXT UNIQUE NOT NULL,
	cloud                INTEGER NOT NULL DEFAULT 1,
	added                DATETIME,
	last_seen            DATETIME,
	poll_count           INTEGER NOT NULL DEFAULT 0,
	last_request_counter INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_devices_device_token ON devices(device_token);
CREATE INDEX IF NOT EXISTS idx_devices_user_id ON devices(user_id);

CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	device_token TEXT,
	device_id    TEXT NOT NULL,
	message_type TEXT NOT NULL DEFAULT 'command',
	message_data TEXT,
	signature    TEXT,
	direction    TEXT NOT NULL,
	timestamp    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_device_id ON messages(device_id);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
CREATE INDEX IF NOT EXISTS idx_messages_direction ON messages(direction);

CREATE TABLE IF NOT EXISTS server_config (
	key        TEXT PRIMARY KEY,
	value      TEXT,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
