package main

import "github.com/pavelbre/copycheck/cmd"

func main() {
	cmd.Execute()
}
