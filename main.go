package main

import "github.com/b-vitamins/bibliography/cmd"

func main() {
	cmd.Execute()
}
