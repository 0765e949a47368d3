// Package cli provides a line-oriented command surface on standard input
// shared by every running lifecycle instance of the process.
//
// An Engine owns at most one session at a time. The session is created when
// the first instance starts and torn down when the last one stops. While it
// exists a scanner goroutine reads lines from the input, and each line is
// treated as a command code. Known codes run on a single worker goroutine
// so a slow command never stalls input scanning. Unknown codes print the
// help commands.
//
// With a single instance, codes are used as-is. With two or more, each
// code is suffixed with the instance id, for example "s0" and "s1".
//
// Reads are cancellable. Terminal and pipe inputs use
// github.com/muesli/cancelreader; any other reader falls back to a polling
// reader. In both cases a pending read returns within one poll interval of
// cancellation.
package cli
