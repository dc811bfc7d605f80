// Package telemetry is the key-value channel shared between the vision
// coprocessor and the robot controller.
//
// The pipeline reads "heading" at the start of every frame and writes
// "target_angle" and "target_found" at the end. Values live in a MemoryTable
// and reach the robot through one of three transports: a websocket Hub the
// robot connects to (server mode), a websocket Client that connects to the
// robot (client mode), or a SerialBridge speaking key=value lines.
//
// Writes are last-write-wins. Subscribers only see changes, and a transport
// never receives back the updates it applied itself.
package telemetry
