package main

import (
	"log"

	"github.com/kendall-kelly/quickfix-api/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
