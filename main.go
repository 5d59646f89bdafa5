package main

import "archiver/cmd"

func main() {
	cmd.Execute()
}
