package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/nkiryanov/refundpanel/internal/service/auth"
)

const SecretKeyBytesLen = 32

func randomHex() (string, error) {
	b := make([]byte, SecretKeyBytesLen)

	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

func main() {
	gameKey := pflag.BoolP("game-key", "g", false, "Also print game server key and its hash for GAME_KEY_HASH")
	pflag.Parse()

	secret, err := randomHex()
	if err != nil {
		fmt.Printf("error while generating secret key: %v", err)
		os.Exit(1)
	}
	fmt.Println(secret)

	if !*gameKey {
		return
	}

	key, err := randomHex()
	if err != nil {
		fmt.Printf("error while generating game key: %v", err)
		os.Exit(1)
	}
	hash, err := auth.BcryptHasher{}.Hash(key)
	if err != nil {
		fmt.Printf("error while hashing game key: %v", err)
		os.Exit(1)
	}

	fmt.Printf("GAME_KEY=%s\n", key)
	fmt.Printf("GAME_KEY_HASH=%s\n", hash)
}
