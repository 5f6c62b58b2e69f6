package main

import (
	"github.com/axellelanca/clickstream/cmd"
	_ "github.com/axellelanca/clickstream/cmd/cli"
	_ "github.com/axellelanca/clickstream/cmd/consumer"
	_ "github.com/axellelanca/clickstream/cmd/server"
)

func main() {
	cmd.Execute()
}
