package main

import "github.com/transfermesh/dtk/cmd/dtkctl/cmd"

func main() {
	cmd.Execute()
}
