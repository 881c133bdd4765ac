package main

import "github.com/tonimelisma/spe-client/cmd"

func main() {
	cmd.Execute()
}
