//go:build unix

// Package main provides isabelle-bridge, which starts the scala-isabelle
// control process behind two named pipes and returns once it is listening.
package main

func main() {
	Execute()
}
