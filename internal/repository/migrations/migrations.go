package migrations

import (
	"fmt"
)

const TableName = "secure_call_log"

// PostgreSQL migrations
var PostgresSchema = `
CREATE TABLE IF NOT EXISTS secure_call_log (
    seq BIGINT PRIMARY KEY,
    id UUID NOT NULL UNIQUE,
    logged_at TIMESTAMP WITH TIME ZONE NOT NULL,
    source VARCHAR(32) NOT NULL,
    path TEXT,
    client_ip VARCHAR(45),
    outcome VARCHAR(16) NOT NULL,
    reason VARCHAR(32),
    payload JSON NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_secure_call_log_logged_at ON secure_call_log(logged_at);
CREATE INDEX IF NOT EXISTS idx_secure_call_log_source ON secure_call_log(source);
`

// Oracle migrations, one statement per Exec. ORA-00955 (name already used)
// is swallowed so the set can be re-run.
var OracleSchema = []string{
	`BEGIN
    EXECUTE IMMEDIATE 'CREATE TABLE secure_call_log (
        seq NUMBER(19) PRIMARY KEY,
        id VARCHAR2(36) NOT NULL UNIQUE,
        logged_at TIMESTAMP WITH TIME ZONE NOT NULL,
        source VARCHAR2(32) NOT NULL,
        path VARCHAR2(2048),
        client_ip VARCHAR2(45),
        outcome VARCHAR2(16) NOT NULL,
        reason VARCHAR2(32),
        payload CLOB NOT NULL
    )';
EXCEPTION
    WHEN OTHERS THEN
        IF SQLCODE != -955 THEN
            RAISE;
        END IF;
END;`,
	`BEGIN
    EXECUTE IMMEDIATE 'CREATE INDEX idx_scl_logged_at ON secure_call_log(logged_at)';
EXCEPTION
    WHEN OTHERS THEN
        IF SQLCODE != -955 THEN
            RAISE;
        END IF;
END;`,
}

// SQLite migrations
var SQLiteSchema = []string{
	`CREATE TABLE IF NOT EXISTS secure_call_log (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		logged_at INTEGER NOT NULL,
		source TEXT NOT NULL,
		path TEXT,
		client_ip TEXT,
		outcome TEXT NOT NULL,
		reason TEXT,
		payload TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_secure_call_log_logged_at ON secure_call_log(logged_at);`,
}

// Couchbase indexes
func GetCouchbaseIndexes(bucketName string) []string {
	return []string{
		fmt.Sprintf("CREATE PRIMARY INDEX ON `%s`", bucketName),
		fmt.Sprintf("CREATE INDEX idx_secure_call_log_seq ON `%s`(seq)", bucketName),
		fmt.Sprintf("CREATE INDEX idx_secure_call_log_source ON `%s`(source)", bucketName),
	}
}
