package main

import "github.com/notargets/netgenplugin/cmd"

func main() {
	cmd.Execute()
}
