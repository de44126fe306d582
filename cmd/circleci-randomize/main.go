// Package main provides circleci-randomize, which regenerates the Circle CI
// configuration from a template and a randomly or explicitly picked profile.
package main

func main() {
	Execute()
}
