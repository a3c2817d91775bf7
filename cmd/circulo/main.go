package main

import "github.com/circulo/circulo/internal/cli"

func main() {
	cli.Execute()
}
