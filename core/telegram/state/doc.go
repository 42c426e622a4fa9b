// Package state serializes update handling per chat so that read-modify-write cycles on
// chat-scoped data never interleave.
package state
