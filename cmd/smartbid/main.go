// Package main is the entry point for SmartBid Compliance.
//
//	@title			SmartBid Compliance API
//	@version		1.0
//	@description	Bid compliance audits with a metered trial, subscription billing and a generative AI relay.
//
//	@contact.name	SmartBid Support
//	@contact.url	https://github.com/ravindran79-arch/smartbid-compliance/issues
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal; a malformed one is worth reporting.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}

	Execute()
}
