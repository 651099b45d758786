package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nerrad567/gray-logic-hassdriver/internal/auth"
	"github.com/nerrad567/gray-logic-hassdriver/internal/infrastructure/config"
)

// runToken prints a signed API token. The secret comes from the loaded
// config (and so from HASSDRIVER_JWT_SECRET) unless -secret is given.
//
//	hassdriver token -sub historian -role viewer -ttl 720h
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(out)
	subject := fs.String("sub", "", "token subject, e.g. the calling service")
	role := fs.String("role", string(auth.RoleViewer), "viewer, operator or admin")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	secret := fs.String("secret", "", "signing secret (default: security.jwt.secret)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("-sub is required")
	}

	key := *secret
	if key == "" {
		cfg, err := config.Load(getConfigPath())
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg != nil {
			key = cfg.Security.JWT.Secret
		}
	}
	if key == "" {
		return fmt.Errorf("no signing secret: set security.jwt.secret or pass -secret")
	}

	r, err := auth.ParseRole(*role)
	if err != nil {
		return err
	}
	token, err := auth.GenerateToken(*subject, r, key, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
