// Package wire encodes the payloads exchanged between evacsim processes.
//
// Every payload is a protobuf-compatible byte string written with
// protowire, so a schema-aware peer could read it with a generated message.
// Lists carry an explicit count field ahead of the repeated items; decoders
// reject payloads whose count does not match what was actually received.
package wire
