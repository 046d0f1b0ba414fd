package main

import "github.com/farmsense/poultryqa/internal/cli"

func main() {
	cli.Execute()
}
