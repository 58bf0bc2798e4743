package main

import (
	"os"

	"github.com/ivlev/storyvideo/internal/cli"
)

const BuildVersion = "v0.1.0"

func main() {
	// Создаем нужные директории, если их нет
	for _, d := range []string{"input/stories", "output"} {
		os.MkdirAll(d, 0755)
	}

	cli.BuildVersion = BuildVersion
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
