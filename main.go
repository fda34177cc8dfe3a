package main

import "github.com/alexc/authgate/cmd"

func main() {
	cmd.Execute()
}
