// Package conversation orchestrates one chat turn: load the user's
// session, assemble the prompt, call the generation gateway, fold the
// new exchange into history, and persist the result.
package conversation
