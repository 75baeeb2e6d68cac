// Package postgres implements store.Store on PostgreSQL using pgx/v5 with
// raw SQL. Schema changes ship as embedded SQL migrations; snapshot writes
// are announced on the berth_snapshots LISTEN/NOTIFY channel.
package postgres
