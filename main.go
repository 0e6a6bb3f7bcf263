package main

import "github.com/endorses/stringmatch/cmd"

func main() {
	cmd.Execute()
}
