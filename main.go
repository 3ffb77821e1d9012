package main

import "github.com/tootrelay/tootrelay/cmd"

func main() {
	cmd.Execute()
}
