// Package memory provides an in-memory credential store.
//
// Records live in sharded concurrent maps with secondary indexes by token
// digest, email, username and owner. Writes that touch more than one index
// take the store lock; the request path reads without it.
//
// Every record handed out is a clone, so callers can never mutate stored
// state.
package memory
