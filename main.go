package main

import "github.com/samogod/dreamprep/cmd"

func main() {
	cmd.Execute()
}
