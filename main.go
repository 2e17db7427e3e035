package main

import "github.com/jfmyers9/borahae/cmd"

func main() {
	cmd.Execute()
}
