package main

import (
	"log"

	"github.com/SurajPatil2645/VentureFlow/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
