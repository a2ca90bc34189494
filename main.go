package main

import (
	"github.com/KaramelBytes/tabstat/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// TABSTAT_* variables may come from a .env file in the working directory;
	// real environment variables take precedence.
	_ = godotenv.Load()
	cmd.Execute()
}
