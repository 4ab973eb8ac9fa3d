package main

import (
	"github.com/aidrelay/aidrelay/app"
)

func main() {
	app.New(nil).Run()
}
