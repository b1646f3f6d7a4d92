package main

import "github.com/bankclean/bankclean/cmd"

func main() {
	cmd.Execute()
}
