package main

import (
	"log"
	"modbot/internal/pkg/app"
)

func main() {
	if err := app.New(); err != nil {
		log.Fatal(err)
	}
}
