package main

import "neurovision/cmd/nvctl/cmd"

func main() {
	cmd.Execute()
}
