package main

import "github.com/KaramelBytes/medloom/cmd"

func main() {
	cmd.Execute()
}
