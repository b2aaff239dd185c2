package main

import "github.com/openlaunch/resource-cache/internal/cli"

func main() {
	cli.Execute()
}
