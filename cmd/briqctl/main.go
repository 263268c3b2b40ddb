// briqctl is the operator tool for the briq services: key generation,
// address derivation, and attestation tokens for curl-driven calls.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/syndrizzle/briq/pkg/authn"
	"github.com/syndrizzle/briq/pkg/domain"
)

const usage = `usage:
  briqctl key gen                 generate a keypair, print seed and address
  briqctl key addr --seed <hex>   derive the address for a seed
  briqctl token --seed <hex>      print a bearer attestation for the seed`

func main() {
	if len(os.Args) < 2 {
		fail(usage)
	}
	switch os.Args[1] {
	case "key":
		runKey(os.Args[2:])
	case "token":
		runToken(os.Args[2:])
	default:
		fail(usage)
	}
}

func runKey(args []string) {
	if len(args) < 1 {
		fail(usage)
	}
	switch args[0] {
	case "gen":
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			fail(fmt.Sprintf("keygen: %v", err))
		}
		printJSON(map[string]any{
			"seed":    hex.EncodeToString(priv.Seed()),
			"address": domain.AddressFromPublicKey(pub),
		})
	case "addr":
		key := seedKey(args[1:])
		printJSON(map[string]any{
			"address": domain.AddressFromPublicKey(key.Public().(ed25519.PublicKey)),
		})
	default:
		fail(usage)
	}
}

func runToken(args []string) {
	key := seedKey(args)
	tok, err := authn.Token(key, time.Now())
	if err != nil {
		fail(fmt.Sprintf("token: %v", err))
	}
	printJSON(map[string]any{
		"token":      tok,
		"expires_in": int(authn.TokenTTL.Seconds()),
		"address":    domain.AddressFromPublicKey(key.Public().(ed25519.PublicKey)),
	})
}

func seedKey(args []string) ed25519.PrivateKey {
	var seed string
	for i := 0; i < len(args); i++ {
		if args[i] == "--seed" && i+1 < len(args) {
			seed = args[i+1]
			i++
		}
	}
	if seed == "" {
		fail(usage)
	}
	key, err := authn.KeyFromSeedHex(seed)
	if err != nil {
		fail(fmt.Sprintf("bad seed: %v", err))
	}
	return key
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
