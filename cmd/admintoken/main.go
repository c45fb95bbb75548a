// Command admintoken prints a bcrypt hash for ADMIN_PASSWORD_HASH or mints
// an ADMIN access token signed with JWT_SECRET.
//
//	admintoken --hash 's3cret'
//	admintoken --sub ops --ttl 30
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/smart-parking/internal/middleware"
	"github.com/iliyamo/smart-parking/internal/utils"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "admintoken: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var (
		password string
		cost     int
		subject  string
		ttlMin   int
	)
	flagSet := pflag.NewFlagSet("admintoken", pflag.ContinueOnError)
	flagSet.StringVarP(&password, "hash", "p", "", "print the bcrypt hash of this password and exit")
	flagSet.IntVarP(&cost, "cost", "c", 12, "bcrypt cost")
	flagSet.StringVarP(&subject, "sub", "s", "admin", "token subject")
	flagSet.IntVarP(&ttlMin, "ttl", "t", 60, "token lifetime in minutes")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	if password != "" {
		h, err := utils.HashPassword(password, cost)
		if err != nil {
			return fmt.Errorf("hash: %w", err)
		}
		fmt.Fprintln(out, h)
		return nil
	}

	_ = godotenv.Load() // .env is optional; existing env wins
	tok, err := utils.NewAccessToken(os.Getenv("JWT_SECRET"), subject, middleware.RoleAdmin, ttlMin)
	if err != nil {
		return fmt.Errorf("token: %w (is JWT_SECRET set?)", err)
	}
	fmt.Fprintf(out, "%s\nexpires %s\n", tok.Token, tok.Exp.Format(time.RFC3339))
	return nil
}
