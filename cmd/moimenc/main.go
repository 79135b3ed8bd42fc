// Command moimenc encrypts a secret with the secretbox master key, for
// storing values like the auth backend service key in config files.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	sec "github.com/dayoff-kr/moimlink/internal/security/secretbox"
)

func main() {
	_ = godotenv.Load(".env")
	if os.Getenv("SECRETBOX_MASTER_KEY") == "" {
		log.Fatal("SECRETBOX_MASTER_KEY not set")
	}
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <plaintext>", os.Args[0])
	}
	enc, err := sec.Encrypt(os.Args[1])
	if err != nil {
		log.Fatalf("encrypt: %v", err)
	}
	fmt.Println(enc)
}
