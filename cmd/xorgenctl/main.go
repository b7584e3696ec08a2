package main

import (
	"flag"
	"fmt"
	"os"
)

const productName = "xorgen"
const cliBanner = productName + " CLI (xorgenctl)"

func init() {
	defaultUsage := flag.Usage
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintln(out, cliBanner)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Usage: xorgenctl <command> [flags]")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  normalize   filter and wrap text into fixed-width lines")
		fmt.Fprintln(out, "  encrypt     XOR normalized lines with a repeating key")
		fmt.Fprintln(out, "  decrypt     decrypt ciphertext with a known key")
		fmt.Fprintln(out, "  recover     recover key and plaintext from the key length alone")
		fmt.Fprintln(out, "  keygen      generate a random lowercase key")
		fmt.Fprintln(out, "  pipeline    run registered operations in sequence")
		fmt.Fprintln(out, "  recipe      manage saved pipelines (list|save|show|delete|export|import)")
		fmt.Fprintln(out, "  history     inspect saved recovery runs (list|show|delete)")
		fmt.Fprintln(out, "  config      print the resolved configuration")
		fmt.Fprintln(out, "  version     print the version")
		fmt.Fprintln(out)
		if defaultUsage != nil {
			defaultUsage()
		}
	}
}

func main() {
	flag.Parse()
	if maybePrintVersion() {
		return
	}
	os.Exit(run(flag.Args()))
}

func run(args []string) int {
	if len(args) == 0 {
		flag.Usage()
		return 2
	}

	switch args[0] {
	case "normalize":
		return runNormalize(args[1:])
	case "encrypt":
		return runEncrypt(args[1:])
	case "decrypt":
		return runDecrypt(args[1:])
	case "recover":
		return runRecover(args[1:])
	case "keygen":
		return runKeygen(args[1:])
	case "pipeline":
		return runPipeline(args[1:])
	case "recipe":
		return runRecipe(args[1:])
	case "history":
		return runHistory(args[1:])
	case "config":
		return runConfig(args[1:])
	case "version":
		return runVersion(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		flag.Usage()
		return 2
	}
}
