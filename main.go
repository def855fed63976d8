package main

import "github.com/gayunlee/letter-post-weekly-report/internal/app"

func main() {
	app.Main()
}
