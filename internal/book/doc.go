// Package book defines the persistent entities of the production pipeline.
//
// Book and Chapter are the durable domain records; GenerationLog is the
// append-only audit trail; WorkflowCursor tracks where the editor is in the
// approval loop. All records are owned by the store; the workflow and gate
// packages manipulate them as values only.
package book
