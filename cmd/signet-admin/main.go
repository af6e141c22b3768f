// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/signet-project/signet/identity"
	"github.com/signet-project/signet/lib/clock"
	"github.com/signet-project/signet/lib/process"
	"github.com/signet-project/signet/lib/version"
	"github.com/signet-project/signet/sqlitestore"
)

const usage = `usage:
  signet-admin --db <path> user add <user-id> [--quota <bytes>] [--note <text>]
  signet-admin --db <path> user list
  signet-admin --db <path> user remove <user-id>
`

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	flags := pflag.NewFlagSet("signet-admin", pflag.ContinueOnError)
	databasePath := flags.String("db", "signet.db", "SQLite database path")
	quota := flags.Int64("quota", 0, "storage quota in bytes, 0 for unlimited")
	note := flags.String("note", "", "operator note stored with the user")
	showVersion := flags.Bool("version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if *showVersion {
		fmt.Println("signet-admin", version.Info())
		return nil
	}

	args := flags.Args()
	if len(args) < 2 || args[0] != "user" {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command")
	}

	backend, err := sqlitestore.Open(sqlitestore.Config{
		Path:   *databasePath,
		Clock:  clock.Real(),
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		return err
	}
	defer backend.Close()

	ctx := context.Background()

	switch args[1] {
	case "add":
		user, err := commandUser(args[2:])
		if err != nil {
			return err
		}
		if err := backend.AddUser(ctx, user, *quota, *note); err != nil {
			return err
		}
		fmt.Println("added", user)
		return nil

	case "remove":
		user, err := commandUser(args[2:])
		if err != nil {
			return err
		}
		if err := backend.RemoveUser(ctx, user); err != nil {
			return err
		}
		fmt.Println("removed", user)
		return nil

	case "list":
		records, err := backend.ListUsers(ctx)
		if err != nil {
			return err
		}
		for _, record := range records {
			quotaText := "unlimited"
			if record.QuotaBytes > 0 {
				quotaText = fmt.Sprintf("%d bytes", record.QuotaBytes)
			}
			fmt.Printf("%s\tquota %s", record.User, quotaText)
			if record.Note != "" {
				fmt.Printf("\t%s", record.Note)
			}
			fmt.Println()
		}
		return nil
	}

	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown user subcommand %q", args[1])
}

// commandUser parses the single user-id argument of a user subcommand.
func commandUser(args []string) (identity.UserID, error) {
	if len(args) != 1 {
		return identity.UserID{}, fmt.Errorf("expected exactly one user ID argument")
	}
	user, err := identity.ParseUserID(args[0])
	if err != nil {
		return identity.UserID{}, fmt.Errorf("bad user ID %q: %w", args[0], err)
	}
	return user, nil
}
