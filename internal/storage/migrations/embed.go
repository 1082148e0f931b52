package migrations

import "embed"

// PostgresFS holds the runs/trades schema, applied in lexical order.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the feature_rows schema. Statements are split and
// executed one at a time; clickhouse-go rejects multi-statement Exec.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
