package main

import "github.com/hamzasclone2/quash/cmd"

func main() {
	cmd.Execute()
}
