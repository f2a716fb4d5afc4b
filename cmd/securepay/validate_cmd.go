package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"securepay/pkg/cardfield"
)

type cardFlags struct {
	card   string
	exp    string
	cvv    string
	postal string
}

func (f *cardFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.card, "card", "", "card number")
	fs.StringVar(&f.exp, "exp", "", "expiration date (MM/YY)")
	fs.StringVar(&f.cvv, "cvv", "", "card security code")
	fs.StringVar(&f.postal, "postal", "", "postal code")
}

func (f *cardFlags) fields() cardfield.Fields {
	return cardfield.Format(cardfield.Fields{
		CardNumber:     f.card,
		ExpirationDate: f.exp,
		CVV:            f.cvv,
		PostalCode:     f.postal,
	})
}

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var card cardFlags
	card.register(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	fields := card.fields()
	errs := cardfield.Validate(fields, time.Now())
	printField(cardfield.FieldCardNumber, fields.CardNumber, errs)
	printField(cardfield.FieldExpirationDate, fields.ExpirationDate, errs)
	printField(cardfield.FieldCVV, fields.CVV, errs)
	printField(cardfield.FieldPostalCode, fields.PostalCode, errs)
	if errs != nil {
		return 1
	}
	return 0
}

func printField(name, value string, errs cardfield.FieldErrors) {
	if msg, ok := errs[name]; ok {
		fmt.Printf("%s=%q status=fail error=%q\n", name, value, msg)
		return
	}
	fmt.Printf("%s=%q status=pass\n", name, value)
}
