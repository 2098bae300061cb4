package state

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by project id so any
// number of projects can coexist on a single Redis server.
//
// Key pattern: inkwell:{project_id}:{entity}
// Channel pattern: inkwell:{project_id}:events

// StateKey returns the Redis key for a project's workflow state snapshot.
// Pattern: inkwell:{project_id}:state
func StateKey(projectID string) string {
	return fmt.Sprintf("inkwell:%s:state", projectID)
}

// EventsChannel returns the Pub/Sub channel for a project's workflow events.
// The orchestration engine mirrors every broadcast event here so detached
// observers (the CLI watch command) can follow a run.
// Pattern: inkwell:{project_id}:events
func EventsChannel(projectID string) string {
	return fmt.Sprintf("inkwell:%s:events", projectID)
}

// ProjectsKey returns the Redis key of the set holding all known project ids.
// Pattern: inkwell:projects
func ProjectsKey() string {
	return "inkwell:projects"
}
