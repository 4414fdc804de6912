// Package buffer holds bounded in-memory buffers.
//
// RingBuffer keeps the most recent N elements and drops the oldest when
// full. LineRing is an io.Writer that splits its input into lines and keeps
// the last N of them; it is used to capture the tail of a child process's
// output.
package buffer
