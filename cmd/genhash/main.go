// genhash prints a bcrypt hash for the given password, for hand-crafting
// user rows in fixtures or SQL consoles.
//
//	go run ./cmd/genhash 's3cret'
package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	password := "feedstock-dev"
	if len(os.Args) > 1 {
		password = os.Args[1]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		fmt.Fprintln(os.Stderr, "genhash:", err)
		os.Exit(1)
	}
	fmt.Println(string(hash))
}
