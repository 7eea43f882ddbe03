// Package store provides the persistence collaborator for bookd.
//
// It owns the Book, Chapter, GenerationLog, and WorkflowCursor tables behind
// a gorm/sqlite implementation. The workflow and gate packages never touch
// the database directly; everything goes through Store.
package store
