package main

// Set with -ldflags "-X main.version=..." when building a release.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)
