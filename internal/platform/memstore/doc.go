// Package memstore provides in-memory implementations of the artifact and
// task stores. They back the server when it runs without a database and
// serve as realistic fakes in tests. Contents are lost on restart.
package memstore
