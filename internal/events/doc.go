// Package events lets services announce progress changes without knowing
// who listens.
//
// Services emit an Event after a record write commits. Handlers registered
// on the InMemoryEventEmitter receive every event in registration order;
// a failing handler never blocks delivery to the others.
package events
