// Package storage provides the persistent credential stores.
//
// BadgerEngine is an embedded key-value engine; BadgerCredentialStore keeps
// users and tokens in it as JSON records. Every call runs in its own
// transaction, so no handle outlives the request that used it.
//
// Key layout:
//
//	user/<id>          -> domain.User
//	token/<id>         -> domain.APIToken
//	digest/<sha256>    -> token id
//	email/<lower>      -> user id
//	username/<name>    -> user id
//	owner/<uid>/<tid>  -> empty (token ownership index)
//
// The in-memory and SQLite stores live in the memory and sqlstore
// subpackages.
package storage
