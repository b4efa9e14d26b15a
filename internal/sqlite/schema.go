package sqlite

// Schema DDL for the listing database. The table name and column order
// match databases written by earlier versions of the verify tool, so
// existing databases can be compared against.
const (
	createData = `CREATE TABLE data (
    path TEXT PRIMARY KEY,
    mode INT,
    uid INT,
    gid INT,
    mtime REAL,
    size INT,
    digest TEXT
);`

	insertData = `INSERT INTO data VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectByPath = `SELECT path, mode, uid, gid, mtime, size, digest FROM data WHERE path = ?`

	countRows = `SELECT COUNT(*) FROM data`
)
