package main

import (
	"github.com/mentora/treasury-service/internal/cli"
	"github.com/mentora/treasury-service/pkg/treasuryclient"
)

func main() {
	cli.Execute(func(baseURL, apiKey string) cli.Client {
		return treasuryclient.NewClient(baseURL, apiKey)
	})
}
