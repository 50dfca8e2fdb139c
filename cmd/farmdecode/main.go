// farmdecode is an offline protocol tool: it self-checks the message
// catalogue and decodes captured payloads. It never dials the gate.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"farmhand.ai/internal/codec"
	"farmhand.ai/internal/protocol"
)

func main() {
	var (
		verify   = flag.Bool("verify", false, "round-trip every catalogue type and report pass/fail")
		decode   = flag.String("decode", "", "payload to decode (JSON, or hex with -hex)")
		hexInput = flag.Bool("hex", false, "treat -decode input as hex")
		typeName = flag.String("type", "", "decode against this type only (default: scan all)")
	)
	flag.Parse()

	reg, err := codec.Load(codec.DefaultCatalog, protocol.Types())
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalogue: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *verify:
		os.Exit(runVerify(reg))
	case *decode != "":
		os.Exit(runDecode(reg, *decode, *hexInput, *typeName))
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runVerify(reg *codec.Registry) int {
	failed := 0
	for _, res := range reg.VerifyEach() {
		if res.Err != nil {
			failed++
			fmt.Printf("FAIL %-28s %v\n", res.Type, res.Err)
			continue
		}
		fmt.Printf("ok   %s\n", res.Type)
	}
	if failed > 0 {
		fmt.Printf("%d type(s) failed\n", failed)
		return 1
	}
	return 0
}

func runDecode(reg *codec.Registry, input string, hexInput bool, typeName string) int {
	b := []byte(input)
	if hexInput {
		raw, err := hex.DecodeString(input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hex input: %v\n", err)
			return 1
		}
		b = raw
	}

	// A full envelope carries its own type; a bare payload is scanned.
	if typeName == "" {
		if env, err := protocol.DecodeEnvelope(b); err == nil && env.Type != "" {
			typeName = env.Type
			b = env.Payload
		}
	}

	matched, msg, err := reg.Describe(b, typeName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode: %v\n", err)
		return 1
	}
	pretty, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		return 1
	}
	fmt.Printf("%s\n%s\n", matched, pretty)
	return 0
}
