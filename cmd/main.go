package main

import cmd "github.com/kerbaras/stonkers/cmd/stonkers"

func main() {
	cmd.Execute()
}
