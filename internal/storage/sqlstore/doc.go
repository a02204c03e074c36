// Package sqlstore implements the credential store on SQLite
// (modernc.org/sqlite, no cgo).
//
// Each call borrows a dedicated *sql.Conn from the pool and returns it
// before the call ends. Writes that touch more than one row run in a
// transaction on that connection.
package sqlstore
