// Package events carries in-process notifications between components.
//
// Two flows live here. TaskRequestEvent is emitted by services when a video
// task needs rendering; an EventHandler in the task package turns it into a
// persisted background job. ProgressEvent is published by the render
// pipeline and fanned out by ProgressBroker to websocket subscribers.
package events
