package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/vasaviseattle/site-tools/cli"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	env := cli.Environment{
		Stderr: os.Stderr,
		Stdout: os.Stdout,
		Stdin:  os.Stdin,
	}

	os.Exit(cli.Run(env))
}
