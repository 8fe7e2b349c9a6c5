package main

import "mspro-labs/loadmore/cmd"

func main() {
	cmd.Execute()
}
