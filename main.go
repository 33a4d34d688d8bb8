package main

import (
	"os"

	"github.com/pgarba/squanchy-go/cmd/squanchy"
)

func main() {
	os.Exit(squanchy.Main())
}
