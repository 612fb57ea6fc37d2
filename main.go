package main

import "schemamirror/cmd"

func main() {
	cmd.Execute()
}
