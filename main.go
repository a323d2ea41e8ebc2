package main

import "github.com/jywlabs/scriptwiz/cmd"

func main() {
	cmd.Execute()
}
