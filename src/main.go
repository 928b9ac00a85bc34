package main

import (
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"

	"staytuned/src/application"
)

func main() {
	log.SetHandler(text.New(os.Stderr))

	app := application.NewApp()
	app.Start()
}
