package main

import "github.com/elia-chat/elia/cmd"

func main() {
	cmd.Execute()
}
