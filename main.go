package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/vtabsquare/officetool/internal/officetoolcli"
)

func main() {
	if err := officetoolcli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, officetoolcli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			officetoolcli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
