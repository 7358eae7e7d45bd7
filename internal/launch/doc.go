// Package launch turns the raw destination a user typed (server id, private
// server invite URL, share link, access code) into a concrete launch target.
package launch
