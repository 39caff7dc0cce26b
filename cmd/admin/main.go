package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"complaintdesk/backend/internal/account"
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/logger"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
)

const usage = `Usage: admin <command> [args]

Commands:
  set-role <email> <user|agent|admin>
  list-users
  set-status <admin_email> <complaint_id> <status>`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Read()
	log := logger.New("development")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	log = logger.New(cfg.Environment)

	db, err := storage.OpenPostgres(cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	s := storage.NewStorageService(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// The CLI never issues tokens.
	accounts := account.NewService(s, nil, log)

	switch command := os.Args[1]; command {
	case "set-role":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin set-role <email> <user|agent|admin>")
			os.Exit(1)
		}
		updated, err := accounts.SetRoleByEmail(ctx, os.Args[2], models.Role(os.Args[3]))
		if err != nil {
			log.Fatal().Err(err).Msg("error setting role")
		}
		fmt.Printf("Account %s (%s) now has role %s.\n", updated.ID, os.Args[2], updated.Role)

	case "list-users":
		list, err := s.ListAccounts(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("error listing accounts")
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tROLE\tCREATED")
		for _, a := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Email, a.Role, a.CreatedAt.Format(time.RFC3339))
		}
		_ = w.Flush()

	case "set-status":
		if len(os.Args) != 5 {
			fmt.Println("Usage: admin set-status <admin_email> <complaint_id> <status>")
			os.Exit(1)
		}
		actor, err := s.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(os.Args[2])))
		if err != nil {
			log.Fatal().Err(err).Str("email", os.Args[2]).Msg("acting account not found")
		}
		complaints := complaint.NewService(s, nil, log)
		updated, err := complaints.UpdateStatus(ctx, os.Args[3], os.Args[4], auth.Identity{AccountID: actor.ID, Role: actor.Role})
		if err != nil {
			log.Fatal().Err(err).Msg("error updating status")
		}
		fmt.Printf("Complaint %s is now %q.\n", updated.ID, updated.Status)

	default:
		fmt.Printf("Unknown command: %s\n\n%s\n", command, usage)
		os.Exit(1)
	}
}
