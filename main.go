package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/abdulkhaliq-cyber/clearcomment/internal/app"
)

func main() {
	// .envはローカル開発用。存在しない環境（コンテナ等）では無視する。
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
