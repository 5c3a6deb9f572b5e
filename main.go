package main

import "go.aimuz.me/transpeak/cmd"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.Execute(cmd.BuildInfo{Version: version, Commit: commit, Date: date})
}
