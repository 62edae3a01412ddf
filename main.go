package main

import "painelpib/cmd"

func main() {
	cmd.Execute()
}
