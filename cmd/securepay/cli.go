package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "validate":
		return runValidate(args[2:])
	case "token":
		return runToken(args[2:])
	case "pay":
		return runPay(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "securepay"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s validate --card <number> --exp <MM/YY> --cvv <cvv> --postal <code>\n", name)
	fmt.Fprintf(os.Stderr, "  %s token --url <base> --client-id <id>\n", name)
	fmt.Fprintf(os.Stderr, "  %s pay --url <base> --client-id <id> --amount <n> --card <number> --exp <MM/YY> --cvv <cvv> --postal <code> --key-file <pem>\n", name)
}
