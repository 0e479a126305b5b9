// Command tinybrowser is a small terminal harness for the engine core in
// this module, in the same slot as dpotapov/go-pages's example/main.go:
// a thin binary wiring the library's pieces together for a human to drive,
// not a part of the engine itself.
package main

func main() {
	if err := Execute(); err != nil {
		fatal(err)
	}
}
