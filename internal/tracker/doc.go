// Package tracker maps accounts to the client processes launched for them.
//
// The OS gives no exit notifications for processes we did not spawn as
// children (the client re-execs through a protocol handler), so every
// observation here is a poll of the host's process list. All waits are
// bounded by a timeout and honour context cancellation.
package tracker
