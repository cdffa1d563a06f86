package main

import "github.com/koustreak/pdo/cmd/pdo/commands"

func main() {
	commands.Execute()
}
