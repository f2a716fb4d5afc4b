package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"securepay/internal/infra/keys"
	"securepay/pkg/cardfield"
	"securepay/pkg/client"
)

type serverFlags struct {
	url      string
	clientID string
	timeout  time.Duration
}

func (f *serverFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.url, "url", "http://localhost:3000", "server base URL")
	fs.StringVar(&f.clientID, "client-id", "", "client id")
	fs.DurationVar(&f.timeout, "timeout", 10*time.Second, "request timeout")
}

func runToken(args []string) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var server serverFlags
	server.register(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if server.clientID == "" {
		fmt.Fprintln(os.Stderr, "token requires --client-id")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), server.timeout)
	defer cancel()
	token, err := client.NewClient(server.url, server.clientID).Token(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "request token: %v\n", err)
		return 1
	}
	fmt.Println(token)
	return 0
}

func runPay(args []string) int {
	fs := flag.NewFlagSet("pay", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var server serverFlags
	var card cardFlags
	var amount float64
	var keyFile string
	server.register(fs)
	card.register(fs)
	fs.Float64Var(&amount, "amount", 0, "payment amount")
	fs.StringVar(&keyFile, "key-file", "", "server encryption public key (PEM)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if server.clientID == "" || keyFile == "" {
		fmt.Fprintln(os.Stderr, "pay requires --client-id and --key-file")
		return 1
	}

	raw, err := os.ReadFile(keyFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read key file: %v\n", err)
		return 1
	}
	pub, err := keys.ParsePublicKeyPEM(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse key file: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), server.timeout)
	defer cancel()
	receipt, err := client.NewClient(server.url, server.clientID, client.WithEncryptionKey(pub)).SubmitPayment(ctx, client.Payment{
		Amount:         amount,
		CardNumber:     card.card,
		ExpirationDate: card.exp,
		CVV:            card.cvv,
		PostalCode:     card.postal,
	})
	if err != nil {
		var fieldErrs cardfield.FieldErrors
		if errors.As(err, &fieldErrs) {
			fmt.Fprintf(os.Stderr, "invalid card fields: %v\n", fieldErrs)
			return 1
		}
		fmt.Fprintf(os.Stderr, "submit payment: %v\n", err)
		return 1
	}

	fmt.Printf("status=pass transaction_id=%s client_id=%s timestamp=%s\n",
		receipt.TransactionID, receipt.ClientID, receipt.Timestamp.Format(time.RFC3339Nano))
	if receipt.Amount != nil {
		fmt.Printf("amount=%v\n", *receipt.Amount)
	}
	return 0
}
