/*
Package markov learns letter-level Markov chain tables from word lists and
uses them to generate new, statistically similar words.

A Table accumulates weighted transitions between states produced by a
Splitter (single letters, fixed-width letter groups, or regex-derived
syllables). Every learned word is framed by the Blank state, so a random walk
from Blank back to Blank yields a new word. Tables can be pruned, normalized,
serialized to JSON snapshots, and persisted by name in a SQLite database
through a Store.

A Table is not safe for concurrent use; callers sharing one between
goroutines must serialize access themselves.
*/
package markov
