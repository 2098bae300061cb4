// Package state provides type-safe definitions and Redis persistence for the
// inkwell workflow state. The WorkflowState is the authoritative record of a
// single project's progress through the generative writing workflow
// (planning, critique, writing, critique, complete).
//
// All Redis keys and channels are namespaced by project id so any number of
// projects can safely share a single Redis server. One orchestration engine
// owns a given project's state at a time; the store performs wholesale
// snapshot writes, never partial field updates, so a reload after any
// successful write observes a consistent state.
package state
