// Package audit defines the request/response audit record and the sinks it
// is written to. Every request produces exactly two entries sharing one
// correlation id: a request entry followed by a response entry.
//
// Sinks must accept concurrent appends. A sink that forwards entries
// asynchronously must preserve the order in which a single goroutine appended
// them, so the request entry of a pair is never observed after its response.
package audit
