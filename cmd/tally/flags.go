package main

import (
	"flag"
	"time"

	"github.com/shopspring/decimal"
)

// decimalFlag is a flag.Value for money amounts.
type decimalFlag struct {
	value decimal.Decimal
	set   bool
}

func (f *decimalFlag) String() string {
	if !f.set {
		return ""
	}
	return f.value.String()
}

func (f *decimalFlag) Set(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	f.value, f.set = d, true
	return nil
}

type dateFlag struct {
	value time.Time
}

func (f *dateFlag) String() string {
	if f.value.IsZero() {
		return ""
	}
	return f.value.Format(time.DateOnly)
}

func (f *dateFlag) Set(s string) error {
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return err
	}
	f.value = t
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

// visited reports the flags given explicitly on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	seen := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { seen[f.Name] = true })
	return seen
}

// splitID takes the leading positional id before the flags.
func splitID(args []string) (string, []string, error) {
	if len(args) == 0 || len(args[0]) == 0 || args[0][0] == '-' {
		return "", nil, usageError("missing id")
	}
	return args[0], args[1:], nil
}
